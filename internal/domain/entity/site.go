package entity

import (
	"fmt"
	"time"
)

// Site is a news source identified by a stable short name. Created on first
// appearance, never mutated afterwards.
type Site struct {
	ID          int64
	Name        string
	OriginalURL string
	Location    *time.Location
}

// NewSite validates and constructs a Site. Name and OriginalURL are the
// natural key the storage layer upserts on.
func NewSite(name, originalURL string, loc *time.Location) (*Site, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "site name is required"}
	}
	if err := ValidateURL(originalURL); err != nil {
		return nil, fmt.Errorf("site %q: %w", name, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Site{Name: name, OriginalURL: originalURL, Location: loc}, nil
}
