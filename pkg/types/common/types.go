// Package common holds the wire primitives shared by every DTO package:
// entity identity, audit metadata and pagination.
package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID is the string form of a UUID v4.
type ID string

// NewID generates a fresh random ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// Validate checks that the ID is a well-formed UUID.
func (id ID) Validate() error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("invalid ID format: %w", err)
	}
	return nil
}

// BaseEntity carries audit metadata for persisted entities and their DTOs.
type BaseEntity struct {
	ID        ID        `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version increments on every update; used for optimistic locking.
	Version int `json:"version"`
}

// Touch advances the audit metadata for an update.
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
	e.Version++
}

// Pagination bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// Pagination describes one page of a listing, both as a request parameter
// and as response metadata.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}

// Normalize fills zero values with defaults and clamps the page size.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Validate rejects out-of-range paging parameters.
func (p Pagination) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("page must be >= 1")
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d", MaxPageSize)
	}
	return nil
}

// Offset returns the SQL OFFSET for the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}
