// Package views derives the home page sections and the owned-listings
// list from fetched listings.
package views

import (
	"cmp"
	"slices"
	"strconv"
	"time"

	"dreamhome/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Slots is how many cards each home section renders.
const Slots = 8

// Slot is one card position. Placeholder slots carry no listing and have
// no actions.
type Slot struct {
	Listing     *domain.Listing
	Placeholder bool
}

type Home struct {
	Offers []Slot
	Rent   []Slot
	Sale   []Slot
}

func IsOffer(l domain.Listing) bool { return l.HasDiscount() }
func IsRent(l domain.Listing) bool  { return l.Type.Is(domain.TypeRent) }
func IsSale(l domain.Listing) bool  { return l.Type.Is(domain.TypeSale) }

// Derive filters, sorts newest first and pads each section.
func Derive(all []domain.Listing) Home {
	return Home{
		Offers: Section(all, IsOffer),
		Rent:   Section(all, IsRent),
		Sale:   Section(all, IsSale),
	}
}

// Section returns exactly Slots entries: the newest matches, then
// placeholders.
func Section(all []domain.Listing, keep func(domain.Listing) bool) []Slot {
	picked := Select(all, keep, Slots)
	out := make([]Slot, Slots)
	for i := range out {
		if i < len(picked) {
			l := picked[i]
			out[i] = Slot{Listing: &l}
		} else {
			out[i] = Slot{Placeholder: true}
		}
	}
	return out
}

// Select is Section without padding.
func Select(all []domain.Listing, keep func(domain.Listing) bool, limit int) []domain.Listing {
	var picked []domain.Listing
	for _, l := range all {
		if keep(l) {
			picked = append(picked, l)
		}
	}
	SortNewest(picked)
	if len(picked) > limit {
		picked = picked[:limit]
	}
	return picked
}

// SortNewest orders by creation time, newest first. Listings without a
// createdAt fall back to the timestamp inside an ObjectID-shaped id, and
// after that to a descending id comparison.
func SortNewest(ls []domain.Listing) {
	slices.SortStableFunc(ls, func(a, b domain.Listing) int {
		ta, okA := createdAt(a)
		tb, okB := createdAt(b)
		switch {
		case okA && okB && !ta.Equal(tb):
			return tb.Compare(ta)
		case okA && !okB:
			return -1
		case !okA && okB:
			return 1
		}
		return compareIDDesc(a.ID, b.ID)
	})
}

func createdAt(l domain.Listing) (time.Time, bool) {
	if l.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, l.CreatedAt); err == nil {
			return t, true
		}
	}
	if oid, err := primitive.ObjectIDFromHex(l.ID); err == nil {
		return oid.Timestamp(), true
	}
	return time.Time{}, false
}

// compareIDDesc puts numeric ids before the rest, then orders each group
// descending: numerically for numbers, lexically otherwise.
func compareIDDesc(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(nb, na)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return cmp.Compare(b, a)
}
