// Package naming validates the user-facing names of categories, inventory
// items and templates, which must be non-empty and unique without regard
// to case within their kind.
package naming

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptyName     = errors.New("name is empty")
	ErrDuplicateName = errors.New("name already exists")
)

// ExistsFunc reports whether a record of the same kind, other than
// excludeID, already uses the given name key.
type ExistsFunc func(ctx context.Context, key string, excludeID int64) (bool, error)

// Normalize trims surrounding whitespace.
func Normalize(name string) string {
	return strings.TrimSpace(name)
}

// Key is the comparison form of a name: trimmed, NFC-normalised and lowercased.
// Two names collide exactly when their keys are equal.
func Key(name string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(Normalize(name)))
}

// SameKey reports whether a and b differ at most by case and surrounding space.
func SameKey(a, b string) bool {
	return Key(a) == Key(b)
}

// Validate returns the trimmed name, or ErrEmptyName / ErrDuplicateName.
// Pass excludeID = 0 when creating.
func Validate(ctx context.Context, name string, excludeID int64, exists ExistsFunc) (string, error) {
	name = Normalize(name)
	if name == "" {
		return "", ErrEmptyName
	}
	taken, err := exists(ctx, Key(name), excludeID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrDuplicateName
	}
	return name, nil
}
