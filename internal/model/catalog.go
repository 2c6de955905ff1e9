package model

import "time"

// UncategorizedName labels inventory items that have no category.
const UncategorizedName = "Uncategorized"

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type InventoryItem struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	IsFavourite  bool      `json:"is_favourite"`
	CategoryID   *int64    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Section returns the category heading the item is grouped under.
func (i InventoryItem) Section() string {
	if i.CategoryID == nil || i.CategoryName == "" {
		return UncategorizedName
	}
	return i.CategoryName
}
