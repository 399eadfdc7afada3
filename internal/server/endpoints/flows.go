package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/api"
	"github.com/fablehouse/fable/internal/auth"
	"github.com/fablehouse/fable/internal/store"
	"github.com/fablehouse/fable/internal/svcctx"
)

// FlowView is the API shape of one flow record.
type FlowView struct {
	ID          string     `json:"id"`
	BookID      string     `json:"book_id"`
	Status      string     `json:"status"`
	QueuedPages int        `json:"queued_pages"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func flowView(rec *store.FlowRecord) FlowView {
	return FlowView{
		ID:          rec.ID,
		BookID:      rec.BookID,
		Status:      string(rec.Status),
		QueuedPages: rec.QueuedPages,
		Error:       rec.Error,
		CreatedAt:   rec.CreatedAt,
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
	}
}

// ListFlowsResponse is the response for GET /api/v1/flows.
type ListFlowsResponse struct {
	Flows []FlowView `json:"flows"`
	Count int        `json:"count"`
}

// ListFlowsEndpoint handles GET /api/v1/flows.
type ListFlowsEndpoint struct{}

var _ api.Endpoint = (*ListFlowsEndpoint)(nil)

func (e *ListFlowsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/flows", e.handler
}

func (e *ListFlowsEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		List illustration flows
//	@Description	List flow records, optionally filtered by book or status
//	@Tags			flows
//	@Produce		json
//	@Param			book_id	query		string	false	"Filter by book ID"
//	@Param			status	query		string	false	"Filter by flow status"
//	@Param			limit	query		int		false	"Maximum number of flows to return"
//	@Success		200		{object}	ListFlowsResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/v1/flows [get]
func (e *ListFlowsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	filter := store.FlowFilter{
		BookID:  r.URL.Query().Get("book_id"),
		OwnerID: auth.UserIDFromContext(r.Context()),
		Status:  store.FlowStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	records, err := st.ListFlows(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list flows: %v", err))
		return
	}

	flows := make([]FlowView, len(records))
	for i := range records {
		flows[i] = flowView(&records[i])
	}

	writeJSON(w, http.StatusOK, ListFlowsResponse{Flows: flows, Count: len(flows)})
}

func (e *ListFlowsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var bookID, status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List illustration flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())

			params := url.Values{}
			if bookID != "" {
				params.Set("book_id", bookID)
			}
			if status != "" {
				params.Set("status", status)
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/v1/flows"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			var resp ListFlowsResponse
			if err := client.Get(ctx, path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&bookID, "book", "", "Filter by book ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by flow status")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of flows")
	return cmd
}

// GetFlowEndpoint handles GET /api/v1/flows/{id}.
type GetFlowEndpoint struct{}

var _ api.Endpoint = (*GetFlowEndpoint)(nil)

func (e *GetFlowEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/flows/{id}", e.handler
}

func (e *GetFlowEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Get a flow by ID
//	@Description	Get one illustration flow record
//	@Tags			flows
//	@Produce		json
//	@Param			id	path		string	true	"Flow ID"
//	@Success		200	{object}	FlowView
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/v1/flows/{id} [get]
func (e *GetFlowEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "flow id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	rec, err := st.GetFlowForOwner(r.Context(), id, auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, flowView(rec))
}

func (e *GetFlowEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a flow by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp FlowView
			if err := client.Get(ctx, "/api/v1/flows/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
