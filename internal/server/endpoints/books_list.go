package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/api"
	"github.com/fablehouse/fable/internal/auth"
	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/svcctx"
)

// ListBooksResponse is the response for GET /api/v1/books.
type ListBooksResponse struct {
	Books []book.Book `json:"books"`
	Count int         `json:"count"`
}

// ListBooksEndpoint handles GET /api/v1/books.
type ListBooksEndpoint struct{}

var _ api.Endpoint = (*ListBooksEndpoint)(nil)

func (e *ListBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/books", e.handler
}

func (e *ListBooksEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		List books
//	@Description	List all books owned by the caller
//	@Tags			books
//	@Produce		json
//	@Success		200	{object}	ListBooksResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/v1/books [get]
func (e *ListBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	books, err := store.ListBooksForOwner(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list books: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, ListBooksResponse{Books: books, Count: len(books)})
}

func (e *ListBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your books",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp ListBooksResponse
			if err := client.Get(ctx, "/api/v1/books", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
