package model

import "time"

type Template struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	SortOrder   SortOrder `json:"sort_order"`
	IsFavourite bool      `json:"is_favourite"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type TemplateItem struct {
	Line
	TemplateID int64 `json:"template_id"`
}

func (i TemplateItem) LineInfo() Line { return i.Line }
func (i TemplateItem) OwnerID() int64 { return i.TemplateID }
