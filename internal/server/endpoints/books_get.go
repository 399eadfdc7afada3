package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/api"
	"github.com/fablehouse/fable/internal/auth"
	"github.com/fablehouse/fable/internal/svcctx"
)

// GetBookEndpoint handles GET /api/v1/books/{id}.
type GetBookEndpoint struct{}

var _ api.Endpoint = (*GetBookEndpoint)(nil)

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/books/{id}", e.handler
}

func (e *GetBookEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Get book by ID
//	@Description	Get a book with all of its pages
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"Book ID"
//	@Success		200	{object}	BookResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/v1/books/{id} [get]
func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "book id is required")
		return
	}

	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	b, err := store.GetBookForOwner(r.Context(), id, auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeFlowError(w, err)
		return
	}

	pages, err := store.ListPages(r.Context(), b.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list pages: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, BookResponse{Book: *b, Pages: pages})
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a book by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp BookResponse
			if err := client.Get(ctx, "/api/v1/books/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteBookEndpoint handles DELETE /api/v1/books/{id}.
type DeleteBookEndpoint struct{}

var _ api.Endpoint = (*DeleteBookEndpoint)(nil)

func (e *DeleteBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/v1/books/{id}", e.handler
}

func (e *DeleteBookEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Delete a book
//	@Description	Delete a book and all of its pages
//	@Tags			books
//	@Produce		json
//	@Param			id	path	string	true	"Book ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/v1/books/{id} [delete]
func (e *DeleteBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "book id is required")
		return
	}

	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	if err := store.DeleteBook(r.Context(), id, auth.UserIDFromContext(r.Context())); err != nil {
		writeFlowError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			if err := client.Delete(ctx, "/api/v1/books/"+args[0]); err != nil {
				return err
			}
			fmt.Println("Book deleted")
			return nil
		},
	}
}
