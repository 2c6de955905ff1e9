// Package lineitem edits the lines of shopping lists and templates through
// one code path: both are a quantity/price/notes/unit record pointing at a
// shared inventory item.
package lineitem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/basket/internal/model"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidEdit reports an edit whose values are out of range.
var ErrInvalidEdit = errors.New("invalid edit")

// Store is the persistence a line editor needs. *store.ListStore and
// *store.TemplateStore implement it; EditLine stores a change atomically.
type Store[T model.Lineable] interface {
	GetItem(ctx context.Context, id int64) (*T, error)
	EditLine(ctx context.Context, id int64, c model.LineChange) (*T, error)
}

// Edit is a partial update of one line. Nil fields are left unchanged.
type Edit struct {
	Name          *string
	Scope         model.RenameScope
	CategoryID    *int64
	ClearCategory bool
	Quantity      *float64
	Price         *float64
	Notes         *string
	Unit          *string
}

func (e Edit) changesCategory() bool {
	return e.ClearCategory || e.CategoryID != nil
}

func (e Edit) changesFields() bool {
	return e.Quantity != nil || e.Price != nil || e.Notes != nil || e.Unit != nil
}

type Editor[T model.Lineable] struct {
	store    Store[T]
	validate *validator.Validate
	logger   *slog.Logger
}

func NewEditor[T model.Lineable](s Store[T], logger *slog.Logger) *Editor[T] {
	return &Editor[T]{
		store:    s,
		validate: validator.New(),
		logger:   logger,
	}
}

// Apply validates the edit against the current line and stores it in one
// step, so a duplicate or empty name leaves the line untouched.
// Returns (nil, nil) when the line does not exist.
func (e *Editor[T]) Apply(ctx context.Context, id int64, edit Edit) (*T, error) {
	current, err := e.store.GetItem(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	line := (*current).LineInfo()

	var change model.LineChange
	if edit.changesFields() {
		fields := merge(line.Fields(), edit)
		if err := e.validate.Struct(fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEdit, err)
		}
		change.Fields = &fields
	}

	if edit.Name != nil {
		scope := edit.Scope
		if scope == "" {
			scope = model.RenameGlobal
		}
		if !scope.Valid() {
			return nil, fmt.Errorf("%w: unknown rename scope %q", ErrInvalidEdit, edit.Scope)
		}
		change.Name, change.Scope = edit.Name, scope
	}

	if edit.changesCategory() {
		change.SetCategory = true
		if !edit.ClearCategory {
			change.CategoryID = edit.CategoryID
		}
	}

	if change.Name == nil && !change.SetCategory && change.Fields == nil {
		return current, nil
	}
	result, err := e.store.EditLine(ctx, id, change)
	if err != nil || result == nil {
		return nil, err
	}
	if edited := (*result).LineInfo(); edited.ItemID != line.ItemID {
		e.logger.Debug("line forked inventory item", "line_id", id, "from_item", line.ItemID, "to_item", edited.ItemID)
	}
	return result, nil
}

func merge(f model.LineFields, edit Edit) model.LineFields {
	if edit.Quantity != nil {
		f.Quantity = *edit.Quantity
	}
	if edit.Price != nil {
		f.Price = *edit.Price
	}
	if edit.Notes != nil {
		f.Notes = *edit.Notes
	}
	if edit.Unit != nil {
		f.Unit = *edit.Unit
	}
	return f
}
