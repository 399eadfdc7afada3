package endpoints

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/api"
	"github.com/fablehouse/fable/internal/assets"
	"github.com/fablehouse/fable/internal/auth"
	"github.com/fablehouse/fable/internal/svcctx"
)

// AssetsEndpoint serves stored photos and illustrations from disk.
type AssetsEndpoint struct{}

var _ api.Endpoint = (*AssetsEndpoint)(nil)

func (e *AssetsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/assets/{path...}", e.handler
}

func (e *AssetsEndpoint) RequiresAuth() bool { return true }

func (e *AssetsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	library := svcctx.AssetsFrom(r.Context())
	st := svcctx.StoreFrom(r.Context())
	if library == nil || st == nil {
		writeError(w, http.StatusServiceUnavailable, "asset library not initialized")
		return
	}

	// Asset paths are kind/bookID/file. Only the book's owner may fetch
	// its assets; a mismatch reads as not found.
	rel := r.PathValue("path")
	parts := strings.SplitN(rel, "/", 3)
	if len(parts) != 3 {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	if _, err := st.GetBookForOwner(r.Context(), parts[1], auth.UserIDFromContext(r.Context())); err != nil {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}

	path, err := library.Resolve(assets.URLPrefix + rel)
	if err != nil {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}

	http.ServeFile(w, r, path)
}

func (e *AssetsEndpoint) Command(_ func() string) *cobra.Command {
	// Assets are fetched with a plain HTTP GET.
	return nil
}
