package model

import "time"

// SortOrder controls how a list's or template's lines are ordered.
type SortOrder string

const (
	SortByName     SortOrder = "name"
	SortByCategory SortOrder = "category"
)

func (o SortOrder) Valid() bool {
	return o == SortByName || o == SortByCategory
}

type ShoppingList struct {
	ID          int64      `json:"id"`
	UID         string     `json:"uid"`
	Name        string     `json:"name"`
	SortOrder   SortOrder  `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// IsActive reports whether the list is still being shopped.
func (l ShoppingList) IsActive() bool {
	return l.CompletedAt == nil
}

type ListItem struct {
	Line
	ListID    int64 `json:"list_id"`
	IsChecked bool  `json:"is_checked"`
}

func (i ListItem) LineInfo() Line { return i.Line }
func (i ListItem) OwnerID() int64 { return i.ListID }

// Summary holds the aggregates derived from a list's live items.
type Summary struct {
	ItemCount         int     `json:"item_count"`
	CheckedItemsCount int     `json:"checked_items_count"`
	TotalCost         float64 `json:"total_cost"`
}

type ListWithSummary struct {
	ShoppingList
	Summary
}
