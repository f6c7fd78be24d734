package media

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no media record matches the lookup.
var ErrNotFound = errors.New("media not found")

// Media is the metadata row for an uploaded attachment. The content itself
// lives in a BlobStore keyed by the media ID.
type Media struct {
	ID          string    `json:"id"`
	TreeID      string    `json:"tree_id"`
	PersonID    string    `json:"person_id,omitempty"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
