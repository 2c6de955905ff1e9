package shopping

import (
	"time"

	"github.com/dukerupert/basket/internal/model"
	"github.com/shopspring/decimal"
)

// Bucket is a coarse age band for completed lists.
type Bucket string

const (
	BucketThisWeek  Bucket = "this_week"
	BucketThisMonth Bucket = "this_month"
	BucketOlder     Bucket = "older"
)

var bucketOrder = []Bucket{BucketThisWeek, BucketThisMonth, BucketOlder}

// HistoryBucket places a completion time relative to now. "This week" is the
// ISO week containing now; "this month" is the rest of now's calendar month.
// Both times are compared in now's location.
func HistoryBucket(completedAt, now time.Time) Bucket {
	completedAt = completedAt.In(now.Location())

	cy, cw := completedAt.ISOWeek()
	ny, nw := now.ISOWeek()
	if cy == ny && cw == nw {
		return BucketThisWeek
	}
	if completedAt.Year() == now.Year() && completedAt.Month() == now.Month() {
		return BucketThisMonth
	}
	return BucketOlder
}

// HistoryGroup is one band of completed lists with their combined spend.
type HistoryGroup struct {
	Bucket Bucket                  `json:"bucket"`
	Lists  []model.ListWithSummary `json:"lists"`
	Spent  float64                 `json:"spent"`
}

// GroupHistory sorts completed lists into buckets, keeping input order
// within each bucket. Empty buckets are omitted; active lists are skipped.
func GroupHistory(lists []model.ListWithSummary, now time.Time) []HistoryGroup {
	byBucket := make(map[Bucket]*HistoryGroup)
	spent := make(map[Bucket]decimal.Decimal)
	for _, l := range lists {
		if l.CompletedAt == nil {
			continue
		}
		b := HistoryBucket(*l.CompletedAt, now)
		g, ok := byBucket[b]
		if !ok {
			g = &HistoryGroup{Bucket: b}
			byBucket[b] = g
		}
		g.Lists = append(g.Lists, l)
		spent[b] = spent[b].Add(decimal.NewFromFloat(l.TotalCost))
	}

	var groups []HistoryGroup
	for _, b := range bucketOrder {
		if g, ok := byBucket[b]; ok {
			g.Spent = Money(spent[b])
			groups = append(groups, *g)
		}
	}
	return groups
}

// Spending is the aggregate cost of completed shopping.
type Spending struct {
	Total     float64            `json:"total"`
	ListCount int                `json:"list_count"`
	ByBucket  map[Bucket]float64 `json:"by_bucket"`
}

// TotalSpending sums what was spent over all completed lists.
func TotalSpending(lists []model.ListWithSummary, now time.Time) Spending {
	total := decimal.Zero
	s := Spending{ByBucket: make(map[Bucket]float64, len(bucketOrder))}
	for _, b := range bucketOrder {
		s.ByBucket[b] = 0
	}
	for _, g := range GroupHistory(lists, now) {
		s.ByBucket[g.Bucket] = g.Spent
		s.ListCount += len(g.Lists)
		for _, l := range g.Lists {
			total = total.Add(decimal.NewFromFloat(l.TotalCost))
		}
	}
	s.Total = Money(total)
	return s
}
