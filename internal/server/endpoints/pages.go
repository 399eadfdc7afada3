package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/api"
	"github.com/fablehouse/fable/internal/auth"
	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/svcctx"
)

// ListPagesResponse is the response for GET /api/v1/books/{id}/pages.
type ListPagesResponse struct {
	BookID string      `json:"book_id"`
	Pages  []book.Page `json:"pages"`
	Count  int         `json:"count"`
}

// ListPagesEndpoint handles GET /api/v1/books/{id}/pages.
type ListPagesEndpoint struct{}

var _ api.Endpoint = (*ListPagesEndpoint)(nil)

func (e *ListPagesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/books/{id}/pages", e.handler
}

func (e *ListPagesEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		List book pages
//	@Description	List all pages of a book in page order
//	@Tags			pages
//	@Produce		json
//	@Param			id	path		string	true	"Book ID"
//	@Success		200	{object}	ListPagesResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/v1/books/{id}/pages [get]
func (e *ListPagesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, ListPagesResponse{BookID: b.ID, Pages: pages, Count: len(pages)})
}

func (e *ListPagesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "pages <book-id>",
		Short: "List a book's pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp ListPagesResponse
			if err := client.Get(ctx, "/api/v1/books/"+args[0]+"/pages", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ReplacePagePhotoEndpoint handles PUT /api/v1/books/{id}/pages/{pageID}/photo
// with a multipart photo upload. Replacing the photo resets the page's
// moderation state, which is the only way to clear a flagged page.
type ReplacePagePhotoEndpoint struct{}

var _ api.Endpoint = (*ReplacePagePhotoEndpoint)(nil)

func (e *ReplacePagePhotoEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/v1/books/{id}/pages/{pageID}/photo", e.handler
}

func (e *ReplacePagePhotoEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Replace a page's photo
//	@Description	Upload a new source photo for a page and reset its moderation state
//	@Tags			pages
//	@Accept			mpfd
//	@Produce		json
//	@Param			id		path		string	true	"Book ID"
//	@Param			pageID	path		string	true	"Page ID"
//	@Param			photo	formData	file	true	"Replacement photo"
//	@Success		200		{object}	book.Page
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/v1/books/{id}/pages/{pageID}/photo [put]
func (e *ReplacePagePhotoEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	bookID := r.PathValue("id")
	pageID := r.PathValue("pageID")
	if bookID == "" || pageID == "" {
		writeError(w, http.StatusBadRequest, "book id and page id are required")
		return
	}

	store := svcctx.StoreFrom(r.Context())
	assets := svcctx.AssetsFrom(r.Context())
	if store == nil || assets == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	b, err := store.GetBookForOwner(r.Context(), bookID, auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeFlowError(w, err)
		return
	}

	page, err := store.GetPage(r.Context(), pageID)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	if page.BookID != b.ID {
		writeError(w, http.StatusNotFound, "page does not belong to this book")
		return
	}

	const maxMemory = 32 << 20 // 32MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read photo: %v", err))
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "photo file is empty")
		return
	}

	url, err := assets.SavePhoto(b.ID, page.PageNumber, data, filepath.Ext(header.Filename))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save photo: %v", err))
		return
	}

	if err := store.ReplacePagePhoto(r.Context(), page.ID, url); err != nil {
		writeFlowError(w, err)
		return
	}

	updated, err := store.GetPage(r.Context(), page.ID)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (e *ReplacePagePhotoEndpoint) Command(_ func() string) *cobra.Command {
	// File uploads go through the HTTP API directly.
	return nil
}
