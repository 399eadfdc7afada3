package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/api"
	"github.com/fablehouse/fable/internal/auth"
	"github.com/fablehouse/fable/internal/export"
	"github.com/fablehouse/fable/internal/svcctx"
)

// ExportBookEndpoint handles POST /api/v1/books/{id}/export.
type ExportBookEndpoint struct{}

var _ api.Endpoint = (*ExportBookEndpoint)(nil)

func (e *ExportBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/books/{id}/export", e.handler
}

func (e *ExportBookEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Export book to PDF
//	@Description	Assemble the book's finished illustrations into a PDF
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"Book ID"
//	@Success		200	{object}	export.Result
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/v1/books/{id}/export [post]
func (e *ExportBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "book id is required")
		return
	}

	store := svcctx.StoreFrom(r.Context())
	assets := svcctx.AssetsFrom(r.Context())
	homeDir := svcctx.HomeFrom(r.Context())
	if store == nil || assets == nil || homeDir == nil {
		writeError(w, http.StatusServiceUnavailable, "export services not initialized")
		return
	}

	exporter := export.NewExporter(store, assets, homeDir, svcctx.LoggerFrom(r.Context()))
	result, err := exporter.ExportBook(r.Context(), id, auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *ExportBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "export <id>",
		Short: "Export a book's illustrations to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp export.Result
			if err := client.Post(ctx, "/api/v1/books/"+args[0]+"/export", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
