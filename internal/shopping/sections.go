package shopping

import (
	"sort"

	"github.com/dukerupert/basket/internal/model"
)

const (
	SectionToBuy    = "To buy"
	SectionInBasket = "In basket"
)

// Section is a titled group of rows, as rendered under one heading.
type Section[T any] struct {
	Title string `json:"title"`
	Items []T    `json:"items"`
}

type categorized interface {
	Section() string
}

// SectionsByCategory groups items under their category name, keeping the
// input order inside each group. Groups are ordered by name with
// "Uncategorized" last.
func SectionsByCategory[T categorized](items []T) []Section[T] {
	index := make(map[string]int)
	var sections []Section[T]
	for _, item := range items {
		title := item.Section()
		i, ok := index[title]
		if !ok {
			i = len(sections)
			index[title] = i
			sections = append(sections, Section[T]{Title: title})
		}
		sections[i].Items = append(sections[i].Items, item)
	}

	sort.SliceStable(sections, func(a, b int) bool {
		ta, tb := sections[a].Title, sections[b].Title
		if (ta == model.UncategorizedName) != (tb == model.UncategorizedName) {
			return tb == model.UncategorizedName
		}
		return ta < tb
	})
	return sections
}

// SectionsByChecked splits list items into what is still to buy and what is
// already in the basket. Empty sections are omitted.
func SectionsByChecked(items []model.ListItem) []Section[model.ListItem] {
	var toBuy, inBasket []model.ListItem
	for _, item := range items {
		if item.IsChecked {
			inBasket = append(inBasket, item)
		} else {
			toBuy = append(toBuy, item)
		}
	}

	var sections []Section[model.ListItem]
	if len(toBuy) > 0 {
		sections = append(sections, Section[model.ListItem]{Title: SectionToBuy, Items: toBuy})
	}
	if len(inBasket) > 0 {
		sections = append(sections, Section[model.ListItem]{Title: SectionInBasket, Items: inBasket})
	}
	return sections
}
