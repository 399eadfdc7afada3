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

// BookStatusResponse summarizes where a book's illustration stands.
type BookStatusResponse struct {
	BookID     string           `json:"book_id"`
	Status     book.Status      `json:"status"`
	Terminal   bool             `json:"terminal"`
	TotalPages int              `json:"total_pages"`
	Pages      PageStatusCounts `json:"pages"`
	LatestFlow *FlowView        `json:"latest_flow,omitempty"`
}

// PageStatusCounts tallies pages per moderation outcome.
type PageStatusCounts struct {
	Pending int `json:"pending"`
	OK      int `json:"ok"`
	Flagged int `json:"flagged"`
	Failed  int `json:"failed"`
}

// BookStatusEndpoint handles GET /api/v1/books/{id}/status.
type BookStatusEndpoint struct{}

var _ api.Endpoint = (*BookStatusEndpoint)(nil)

func (e *BookStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/books/{id}/status", e.handler
}

func (e *BookStatusEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Get book illustration status
//	@Description	Get the book's status plus per-page moderation counts and the latest flow
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"Book ID"
//	@Success		200	{object}	BookStatusResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/v1/books/{id}/status [get]
func (e *BookStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	counts := book.CountByModeration(pages)
	resp := BookStatusResponse{
		BookID:     b.ID,
		Status:     b.Status,
		Terminal:   b.Status.Terminal(),
		TotalPages: len(pages),
		Pages: PageStatusCounts{
			Pending: counts[book.ModerationPending],
			OK:      counts[book.ModerationOK],
			Flagged: counts[book.ModerationFlagged],
			Failed:  counts[book.ModerationFailed],
		},
	}

	latest, err := store.LatestFlowForBook(r.Context(), b.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load latest flow: %v", err))
		return
	}
	if latest != nil {
		view := flowView(latest)
		resp.LatestFlow = &view
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *BookStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Get a book's illustration status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp BookStatusResponse
			if err := client.Get(ctx, "/api/v1/books/"+args[0]+"/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
