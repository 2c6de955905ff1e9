package model

// RenameScope decides whether renaming a line's item touches every
// reference to the shared inventory item or only the edited line.
type RenameScope string

const (
	RenameGlobal RenameScope = "global"
	RenameLocal  RenameScope = "local"
)

func (s RenameScope) Valid() bool {
	return s == RenameGlobal || s == RenameLocal
}

// Line holds the attributes shared by list items and template items: a
// quantity/price/notes/unit record pointing at one inventory item.
type Line struct {
	ID           int64   `json:"id"`
	ItemID       int64   `json:"item_id"`
	ItemName     string  `json:"name"`
	ItemUnit     string  `json:"item_unit"`
	CategoryID   *int64  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	Notes        string  `json:"notes"`
	Unit         string  `json:"unit"`
}

// DisplayUnit is the line's unit override, or the inventory item's unit.
func (l Line) DisplayUnit() string {
	if l.Unit != "" {
		return l.Unit
	}
	return l.ItemUnit
}

// Section returns the category heading the line is grouped under.
func (l Line) Section() string {
	if l.CategoryID == nil || l.CategoryName == "" {
		return UncategorizedName
	}
	return l.CategoryName
}

// LineFields are the editable attributes copied between lists and templates.
type LineFields struct {
	Quantity float64 `json:"quantity" validate:"gt=0"`
	Price    float64 `json:"price" validate:"gte=0"`
	Notes    string  `json:"notes" validate:"max=500"`
	Unit     string  `json:"unit" validate:"max=32"`
}

func (l Line) Fields() LineFields {
	return LineFields{Quantity: l.Quantity, Price: l.Price, Notes: l.Notes, Unit: l.Unit}
}

// LineChange is one edit of a line: an optional rename, category change and
// field update, stored together or not at all.
type LineChange struct {
	Name        *string
	Scope       RenameScope
	SetCategory bool
	CategoryID  *int64
	Fields      *LineFields
}

// Lineable is implemented by list items and template items.
type Lineable interface {
	LineInfo() Line
}
