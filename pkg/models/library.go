package models

import (
	"time"
)

// LibraryEntry is one book (or other document) of the community library
type LibraryEntry struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Year        int       `json:"year,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Cover       Reference `json:"cover"`
	File        Reference `json:"file"`
	CreatedAt   time.Time `json:"created_at"`
}

// LibraryDetail is a library entry with its references resolved to URLs.
// Empty URLs mean the file could not be resolved and should render as
// unavailable.
type LibraryDetail struct {
	Entry       *LibraryEntry `json:"entry"`
	CoverURL    string        `json:"cover_url,omitempty"`
	FileURL     string        `json:"file_url,omitempty"`
	DownloadURL string        `json:"download_url,omitempty"` // relay-wrapped when the host needs it
	Available   bool          `json:"available"`
}
