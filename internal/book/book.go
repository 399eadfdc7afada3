// Package book defines the core domain types for illustrated photo books.
package book

import "time"

// Status represents the lifecycle state of a book.
type Status string

const (
	StatusDraft        Status = "DRAFT"
	StatusGenerating   Status = "GENERATING"
	StatusStoryReady   Status = "STORY_READY"
	StatusIllustrating Status = "ILLUSTRATING"
	StatusCompleted    Status = "COMPLETED"
	StatusFailed       Status = "FAILED"
	StatusPartial      Status = "PARTIAL"
)

// IllustrableStatuses are the only statuses from which an illustration
// flow may be started. COMPLETED is deliberately excluded: a finished
// book never gets re-illustrated.
var IllustrableStatuses = []Status{StatusStoryReady, StatusPartial, StatusFailed}

// Illustrable reports whether a flow may be started from this status.
func (s Status) Illustrable() bool {
	for _, allowed := range IllustrableStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}

// Terminal reports whether pollers can stop watching this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

// ModerationStatus is the per-page outcome of an illustration attempt.
type ModerationStatus string

const (
	// ModerationPending means the page was never attempted, or the
	// attempt has not returned yet.
	ModerationPending ModerationStatus = "PENDING"

	// ModerationOK means illustration succeeded and the generated
	// image URL is set.
	ModerationOK ModerationStatus = "OK"

	// ModerationFlagged means the image model refused the content.
	// Permanent: never auto-retried. Only replacing the source photo
	// (which resets the page to PENDING) clears it.
	ModerationFlagged ModerationStatus = "FLAGGED"

	// ModerationFailed means a transient error exhausted its retry
	// budget. Eligible for the next explicit retry.
	ModerationFailed ModerationStatus = "FAILED"
)

// Book is one photo book owned by a single user.
type Book struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Title         string    `json:"title"`
	ArtStyle      string    `json:"art_style"`
	CoverAssetURL string    `json:"cover_asset_url,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Page is one page of a book. PageNumber is the display order; Index is
// the stable position assigned at creation.
type Page struct {
	ID                string           `json:"id"`
	BookID            string           `json:"book_id"`
	PageNumber        int              `json:"page_number"`
	Index             int              `json:"index"`
	Text              string           `json:"text,omitempty"`
	OriginalImageURL  string           `json:"original_image_url"`
	GeneratedImageURL string           `json:"generated_image_url,omitempty"`
	ModerationStatus  ModerationStatus `json:"moderation_status"`
	ModerationReason  string           `json:"moderation_reason,omitempty"`
}

// IsTitlePage reports whether this page is the book's designated cover.
// A page is the title page when its source photo matches the book's
// stored cover asset.
func (p *Page) IsTitlePage(b *Book) bool {
	return b.CoverAssetURL != "" && p.OriginalImageURL == b.CoverAssetURL
}

// Succeeded reports whether the page has a finished illustration.
// Both conditions are required: an OK status without an image is treated
// as unfinished work.
func (p *Page) Succeeded() bool {
	return p.ModerationStatus == ModerationOK && p.GeneratedImageURL != ""
}

// CountByModeration tallies pages per moderation status.
func CountByModeration(pages []Page) map[ModerationStatus]int {
	counts := make(map[ModerationStatus]int, 4)
	for i := range pages {
		counts[pages[i].ModerationStatus]++
	}
	return counts
}
