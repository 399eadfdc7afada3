package flow

import "github.com/fablehouse/fable/internal/book"

// PageJob describes one child illustration job. It carries everything a
// worker needs so the worker never has to reload the book row.
type PageJob struct {
	BookID         string `json:"book_id"`
	PageID         string `json:"page_id"`
	PageNumber     int    `json:"page_number"`
	Text           string `json:"text"`
	ArtStyle       string `json:"art_style"`
	BookTitle      string `json:"book_title"`
	IsTitlePage    bool   `json:"is_title_page"`
	SourceImageURL string `json:"source_image_url"`
}

// BuildPageJobs constructs one child job descriptor per selected page.
func BuildPageJobs(b *book.Book, pages []book.Page) []PageJob {
	jobs := make([]PageJob, 0, len(pages))
	for i := range pages {
		p := &pages[i]
		jobs = append(jobs, PageJob{
			BookID:         b.ID,
			PageID:         p.ID,
			PageNumber:     p.PageNumber,
			Text:           p.Text,
			ArtStyle:       b.ArtStyle,
			BookTitle:      b.Title,
			IsTitlePage:    p.IsTitlePage(b),
			SourceImageURL: p.OriginalImageURL,
		})
	}
	return jobs
}
