package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/api"
	"github.com/fablehouse/fable/internal/auth"
	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/svcctx"
)

// CreateBookRequest is the body for POST /api/v1/books.
type CreateBookRequest struct {
	Title     string              `json:"title"`
	ArtStyle  string              `json:"art_style,omitempty"`
	CoverPage int                 `json:"cover_page,omitempty"`
	Pages     []CreatePageRequest `json:"pages"`
}

// CreatePageRequest describes one page of a new book.
type CreatePageRequest struct {
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url"`
}

// BookResponse is a book together with its pages.
type BookResponse struct {
	Book  book.Book   `json:"book"`
	Pages []book.Page `json:"pages"`
}

// CreateBookEndpoint handles POST /api/v1/books.
type CreateBookEndpoint struct{}

var _ api.Endpoint = (*CreateBookEndpoint)(nil)

func (e *CreateBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/books", e.handler
}

func (e *CreateBookEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Create a book
//	@Description	Create a book with its story pages and source photos
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			book	body		CreateBookRequest	true	"Book to create"
//	@Success		201		{object}	BookResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/v1/books [post]
func (e *CreateBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if len(req.Pages) == 0 {
		writeError(w, http.StatusBadRequest, "at least one page is required")
		return
	}
	for i, p := range req.Pages {
		if p.ImageURL == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("page %d is missing image_url", i+1))
			return
		}
	}
	if req.CoverPage < 0 || req.CoverPage > len(req.Pages) {
		writeError(w, http.StatusBadRequest, "cover_page is out of range")
		return
	}

	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	artStyle := req.ArtStyle
	if artStyle == "" {
		if cfgMgr := svcctx.ConfigFrom(r.Context()); cfgMgr != nil {
			artStyle = cfgMgr.Get().Defaults.ArtStyle
		}
	}

	coverPage := req.CoverPage
	if coverPage == 0 {
		coverPage = 1
	}

	b := book.Book{
		ID:            uuid.New().String(),
		OwnerID:       auth.UserIDFromContext(r.Context()),
		Title:         req.Title,
		ArtStyle:      artStyle,
		CoverAssetURL: req.Pages[coverPage-1].ImageURL,
		Status:        book.StatusStoryReady,
	}

	pages := make([]book.Page, len(req.Pages))
	for i, p := range req.Pages {
		pages[i] = book.Page{
			ID:               uuid.New().String(),
			BookID:           b.ID,
			PageNumber:       i + 1,
			Index:            i,
			Text:             p.Text,
			OriginalImageURL: p.ImageURL,
			ModerationStatus: book.ModerationPending,
		}
	}

	if err := store.CreateBook(r.Context(), &b, pages); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create book: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, BookResponse{Book: b, Pages: pages})
}

func (e *CreateBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a book from a JSON description",
		Long: `Create a book from a JSON file describing the title, art style
and pages. Each page needs an image_url pointing at an uploaded photo
or a remote image.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			var req CreateBookRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("failed to parse %s: %w", file, err)
			}

			client := api.NewClient(getServerURL())
			var resp BookResponse
			if err := client.Post(ctx, "/api/v1/books", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to book description JSON")
	cmd.MarkFlagRequired("file")
	return cmd
}
