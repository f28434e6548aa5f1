package entity

import "time"

// Sentinel values used when the upstream record lacks a field. The two
// spellings differ on purpose; downstream consumers match on the exact
// strings.
const (
	NoPublisher   = "n.A."
	NoDescription = "n.A"
	NoGenre       = "n.A"
)

// Book is the normalized bibliographic record stored per ISBN. ID is
// assigned by the database on first insert and is empty before that.
type Book struct {
	ID           string    `json:"id,omitempty"`
	ISBN         string    `json:"isbn"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Publisher    string    `json:"publisher"`
	Pages        int       `json:"pages"`
	Description  string    `json:"description"`
	Genre        string    `json:"genre"`
	ThumbnailURL string    `json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
