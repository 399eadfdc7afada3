package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/api"
	"github.com/fablehouse/fable/internal/auth"
	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/flow"
	"github.com/fablehouse/fable/internal/svcctx"
)

// IllustrateResponse reports what starting an illustration flow did.
type IllustrateResponse struct {
	BookID      string       `json:"book_id"`
	FlowID      string       `json:"flow_id,omitempty"`
	Outcome     flow.Outcome `json:"outcome"`
	QueuedPages int          `json:"queued_pages,omitempty"`
	Flagged     int          `json:"flagged,omitempty"`
	Status      book.Status  `json:"status"`
	Hint        string       `json:"hint,omitempty"`
}

// IllustrateBookEndpoint handles POST /api/v1/books/{id}/illustrate.
// The same route starts a first run and a retry; the selector inside the
// scheduler decides which pages actually need work.
type IllustrateBookEndpoint struct{}

var _ api.Endpoint = (*IllustrateBookEndpoint)(nil)

func (e *IllustrateBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/books/{id}/illustrate", e.handler
}

func (e *IllustrateBookEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Start or retry illustration
//	@Description	Queue illustration jobs for every page that still needs work
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"Book ID"
//	@Success		200	{object}	IllustrateResponse	"Nothing was queued (already complete, or only flagged pages remain)"
//	@Success		202	{object}	IllustrateResponse	"A flow was queued"
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse	"Already illustrating or already completed"
//	@Failure		422	{object}	ErrorResponse	"Book has no pages"
//	@Router			/api/v1/books/{id}/illustrate [post]
func (e *IllustrateBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "book id is required")
		return
	}

	scheduler := svcctx.SchedulerFrom(r.Context())
	if scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not initialized")
		return
	}

	result, err := scheduler.StartIllustration(r.Context(), id, auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeFlowError(w, err)
		return
	}

	resp := IllustrateResponse{
		BookID:      result.BookID,
		FlowID:      result.FlowID,
		Outcome:     result.Outcome,
		QueuedPages: result.QueuedPageCount,
		Flagged:     result.FlaggedCount,
		Status:      result.Status,
	}
	if result.Outcome == flow.OutcomeNothingToRetry {
		resp.Hint = fmt.Sprintf("%d page(s) were flagged by moderation; replace their photos and retry", result.FlaggedCount)
	}

	status := http.StatusOK
	if result.Outcome == flow.OutcomeQueued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

func (e *IllustrateBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "illustrate <id>",
		Short: "Start or retry illustrating a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp IllustrateResponse
			if err := client.Post(ctx, "/api/v1/books/"+args[0]+"/illustrate", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
