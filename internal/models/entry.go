package models

import (
	"fmt"
	"strings"
	"time"
)

// entryTimeFormat matches the operator-facing layout used when printing
// entries on the terminal, e.g. "Friday, August 29, 2025 3:04 PM".
const entryTimeFormat = "Monday, January 2, 2006 3:04 PM"

// Entry represents a single journal entry
type Entry struct {
	ID        int64      `json:"id" db:"id"`
	Content   string     `json:"content" db:"content"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
	Pinned    bool       `json:"pinned" db:"pinned"`
}

// String renders the entry for terminal output
func (e *Entry) String() string {
	var b strings.Builder

	fmt.Fprintln(&b, e.CreatedAt.Format(entryTimeFormat))
	fmt.Fprintln(&b, "-------------------------------------------")
	fmt.Fprintln(&b, e.Content)
	fmt.Fprintln(&b, "-------------------------------------------")

	if e.UpdatedAt != nil {
		fmt.Fprintf(&b, "Updated at: %s\n", e.UpdatedAt.Format(entryTimeFormat))
	}

	return b.String()
}

// SortOrder determines the ordering of listed entries
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// ParseSortOrder parses a user-supplied sort order, defaulting to DESC
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToUpper(s) {
	case "":
		return SortDesc, nil
	case "ASC":
		return SortAsc, nil
	case "DESC":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("invalid sort order %q (expected asc or desc)", s)
	}
}

// EntryFilter for querying entries
type EntryFilter struct {
	Pinned    *bool     `json:"pinned,omitempty"`
	Substring *string   `json:"substring,omitempty"`
	Page      int64     `json:"page,omitempty"`
	PerPage   int64     `json:"per_page,omitempty"`
	Sort      SortOrder `json:"sort,omitempty"`
}

// Normalize applies the default pagination window and validates bounds
func (f *EntryFilter) Normalize() error {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PerPage == 0 {
		f.PerPage = 10
	}
	if f.Page < 1 || f.PerPage < 1 {
		return fmt.Errorf("page and per_page must be positive")
	}
	if f.Sort == "" {
		f.Sort = SortDesc
	}
	if f.Sort != SortAsc && f.Sort != SortDesc {
		return fmt.Errorf("invalid sort order %q", f.Sort)
	}
	return nil
}
