package lineitem

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/naming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps template items in memory and records the changes it
// receives. A failing change leaves the item as it was.
type fakeStore struct {
	items   map[int64]model.TemplateItem
	changes []model.LineChange
	editErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[int64]model.TemplateItem{
		1: {Line: model.Line{ID: 1, ItemID: 10, ItemName: "Milk", Quantity: 1, Price: 2.99}, TemplateID: 7},
	}}
}

func (f *fakeStore) GetItem(_ context.Context, id int64) (*model.TemplateItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (f *fakeStore) EditLine(_ context.Context, id int64, c model.LineChange) (*model.TemplateItem, error) {
	f.changes = append(f.changes, c)
	if f.editErr != nil {
		return nil, f.editErr
	}
	item := f.items[id]
	if c.Name != nil {
		item.ItemName = *c.Name
		if c.Scope == model.RenameLocal {
			item.ItemID = 99
		}
	}
	if c.SetCategory {
		item.CategoryID = c.CategoryID
	}
	if c.Fields != nil {
		item.Quantity, item.Price, item.Notes, item.Unit = c.Fields.Quantity, c.Fields.Price, c.Fields.Notes, c.Fields.Unit
	}
	f.items[id] = item
	return &item, nil
}

func ptr[T any](v T) *T { return &v }

func newTestEditor(s *fakeStore) *Editor[model.TemplateItem] {
	return NewEditor[model.TemplateItem](s, slog.Default())
}

func TestApplyFields(t *testing.T) {
	s := newFakeStore()
	e := newTestEditor(s)

	got, err := e.Apply(context.Background(), 1, Edit{Quantity: ptr(2.0), Notes: ptr("semi-skimmed")})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2.0, got.Quantity)
	assert.Equal(t, 2.99, got.Price)
	assert.Equal(t, "semi-skimmed", got.Notes)
	require.Len(t, s.changes, 1)
	assert.Nil(t, s.changes[0].Name)
	assert.False(t, s.changes[0].SetCategory)
}

func TestApplyRejectsOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name string
		edit Edit
	}{
		{"zero quantity", Edit{Quantity: ptr(0.0)}},
		{"negative quantity", Edit{Quantity: ptr(-1.0)}},
		{"negative price", Edit{Price: ptr(-0.01)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeStore()
			_, err := newTestEditor(s).Apply(context.Background(), 1, tt.edit)
			assert.ErrorIs(t, err, ErrInvalidEdit)
			assert.Empty(t, s.changes)
		})
	}
}

func TestApplyRenameDefaultsToGlobal(t *testing.T) {
	s := newFakeStore()
	got, err := newTestEditor(s).Apply(context.Background(), 1, Edit{Name: ptr("Oat Milk")})
	require.NoError(t, err)
	assert.Equal(t, "Oat Milk", got.ItemName)
	assert.Equal(t, int64(10), got.ItemID)
	require.Len(t, s.changes, 1)
	assert.Equal(t, model.RenameGlobal, s.changes[0].Scope)
}

func TestApplyCombinedEditIsOneChange(t *testing.T) {
	s := newFakeStore()
	got, err := newTestEditor(s).Apply(context.Background(), 1, Edit{
		Name:       ptr("Oat Milk"),
		Scope:      model.RenameLocal,
		CategoryID: ptr(int64(3)),
		Price:      ptr(3.49),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.ItemID)
	assert.Equal(t, 3.49, got.Price)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, int64(3), *got.CategoryID)

	require.Len(t, s.changes, 1)
	c := s.changes[0]
	assert.Equal(t, model.RenameLocal, c.Scope)
	assert.True(t, c.SetCategory)
	require.NotNil(t, c.Fields)
	assert.Equal(t, 1.0, c.Fields.Quantity)
}

func TestApplyFailureLeavesLine(t *testing.T) {
	s := newFakeStore()
	s.editErr = naming.ErrDuplicateName

	_, err := newTestEditor(s).Apply(context.Background(), 1, Edit{Name: ptr("Eggs"), Price: ptr(1.0)})
	assert.True(t, errors.Is(err, naming.ErrDuplicateName))
	assert.Len(t, s.changes, 1)
	assert.Equal(t, 2.99, s.items[1].Price)
	assert.Equal(t, "Milk", s.items[1].ItemName)
}

func TestApplyUnknownScope(t *testing.T) {
	s := newFakeStore()
	_, err := newTestEditor(s).Apply(context.Background(), 1, Edit{Name: ptr("Eggs"), Scope: "everywhere"})
	assert.ErrorIs(t, err, ErrInvalidEdit)
	assert.Empty(t, s.changes)
}

func TestApplyClearCategory(t *testing.T) {
	s := newFakeStore()
	item := s.items[1]
	item.CategoryID = ptr(int64(2))
	s.items[1] = item

	got, err := newTestEditor(s).Apply(context.Background(), 1, Edit{ClearCategory: true, CategoryID: ptr(int64(5))})
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestApplyEmptyEdit(t *testing.T) {
	s := newFakeStore()
	got, err := newTestEditor(s).Apply(context.Background(), 1, Edit{})
	require.NoError(t, err)
	assert.Equal(t, "Milk", got.ItemName)
	assert.Empty(t, s.changes)
}

func TestApplyMissingLine(t *testing.T) {
	s := newFakeStore()
	got, err := newTestEditor(s).Apply(context.Background(), 42, Edit{Quantity: ptr(1.0)})
	require.NoError(t, err)
	assert.Nil(t, got)
}
