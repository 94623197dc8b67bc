package views

import (
	"fmt"
	"testing"
	"time"

	"dreamhome/internal/domain"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ids(slots []Slot) []string {
	var out []string
	for _, s := range slots {
		if !s.Placeholder {
			out = append(out, s.Listing.ID)
		}
	}
	return out
}

func TestDeriveMixedCollection(t *testing.T) {
	all := []domain.Listing{
		{ID: "3", Offer: true, DiscountPrice: domain.Float(100), RegularPrice: 150, Type: "rent"},
		{ID: "1", Offer: false, Type: "sale"},
	}
	h := Derive(all)

	for _, section := range [][]Slot{h.Offers, h.Rent, h.Sale} {
		require.Len(t, section, Slots)
		for _, s := range section[1:] {
			require.True(t, s.Placeholder)
			require.Nil(t, s.Listing)
		}
	}
	require.Equal(t, []string{"3"}, ids(h.Offers))
	require.Equal(t, []string{"3"}, ids(h.Rent))
	require.Equal(t, []string{"1"}, ids(h.Sale))
}

func TestOfferNeedsDiscount(t *testing.T) {
	all := []domain.Listing{
		{ID: "1", Offer: true},
		{ID: "2", Offer: true, DiscountPrice: domain.Float(0)},
		{ID: "3", Offer: false, DiscountPrice: domain.Float(10)},
	}
	require.Empty(t, ids(Derive(all).Offers))
}

func TestTypeIsCaseInsensitive(t *testing.T) {
	all := []domain.Listing{{ID: "1", Type: "RENT"}, {ID: "2", Type: "Sale"}}
	h := Derive(all)
	require.Equal(t, []string{"1"}, ids(h.Rent))
	require.Equal(t, []string{"2"}, ids(h.Sale))
}

func TestCapAtEightNewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var all []domain.Listing
	for i := 0; i < 12; i++ {
		all = append(all, domain.Listing{
			ID:        fmt.Sprintf("r%02d", i),
			Type:      domain.TypeRent,
			CreatedAt: base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339Nano),
		})
	}
	got := ids(Derive(all).Rent)
	require.Len(t, got, Slots)
	require.Equal(t, "r11", got[0])
	require.Equal(t, "r04", got[7])
}

func TestCreatedAtWinsOverIDOrder(t *testing.T) {
	all := []domain.Listing{
		{ID: "9", Type: "sale", CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "1", Type: "sale", CreatedAt: "2025-01-01T00:00:00Z"},
	}
	require.Equal(t, []string{"1", "9"}, ids(Derive(all).Sale))
}

func TestObjectIDTimestampFallback(t *testing.T) {
	older := primitive.NewObjectIDFromTimestamp(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)).Hex()
	newer := primitive.NewObjectIDFromTimestamp(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)).Hex()
	all := []domain.Listing{{ID: older, Type: "rent"}, {ID: newer, Type: "rent"}}
	require.Equal(t, []string{newer, older}, ids(Derive(all).Rent))
}

func TestNumericIDFallback(t *testing.T) {
	all := []domain.Listing{{ID: "9", Type: "rent"}, {ID: "10", Type: "rent"}, {ID: "2", Type: "rent"}}
	require.Equal(t, []string{"10", "9", "2"}, ids(Derive(all).Rent))
}

func TestMixedIDFallbackIsConsistent(t *testing.T) {
	all := []domain.Listing{{ID: "1x", Type: "rent"}, {ID: "2", Type: "rent"}, {ID: "b", Type: "rent"}, {ID: "10", Type: "rent"}}
	require.Equal(t, []string{"10", "2", "b", "1x"}, ids(Derive(all).Rent))

	idsOnly := []string{"2", "10", "1x"}
	for _, a := range idsOnly {
		for _, b := range idsOnly {
			require.Equal(t, -compareIDDesc(b, a), compareIDDesc(a, b), "%s vs %s", a, b)
			for _, c := range idsOnly {
				if compareIDDesc(a, b) < 0 && compareIDDesc(b, c) < 0 {
					require.Negative(t, compareIDDesc(a, c), "%s < %s < %s", a, b, c)
				}
			}
		}
	}
}

func TestEmptyCollectionIsAllPlaceholders(t *testing.T) {
	h := Derive(nil)
	require.Len(t, h.Offers, Slots)
	require.Empty(t, ids(h.Offers))
}

func TestOwnedRemove(t *testing.T) {
	o := NewOwned([]domain.Listing{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	require.True(t, o.Remove("b"))
	require.False(t, o.Remove("b"))
	require.Equal(t, 2, o.Len())
	_, ok := o.Find("b")
	require.False(t, ok)
	items := o.Items()
	require.Equal(t, "a", items[0].ID)
	require.Equal(t, "c", items[1].ID)
}
