package storage

import "time"

// Source is a watched news feed whose entries get submitted to the card
// service for classification.
type Source struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	AddedAt     time.Time `json:"added_at"`
	LastChecked time.Time `json:"last_checked"`
	LastError   string    `json:"last_error,omitempty"`
}
