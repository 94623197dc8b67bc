package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type ListingType string

const (
	TypeRent ListingType = "rent"
	TypeSale ListingType = "sale"
)

// ParseListingType is case-insensitive; anything else is rejected.
func ParseListingType(s string) (ListingType, bool) {
	switch ListingType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeRent:
		return TypeRent, true
	case TypeSale:
		return TypeSale, true
	}
	return "", false
}

// Is compares types the way the list views do, ignoring case.
func (t ListingType) Is(other ListingType) bool {
	return strings.EqualFold(string(t), string(other))
}

// Label renders "For Rent" / "For Sale".
func (t ListingType) Label() string {
	if t == "" {
		return ""
	}
	return "For " + cases.Title(language.English).String(strings.ToLower(string(t)))
}

// Listing is the record exchanged with the remote listing API.
type Listing struct {
	ID            string      `json:"_id,omitempty" db:"id"`
	Name          string      `json:"name" db:"name"`
	Description   string      `json:"description" db:"description"`
	Address       string      `json:"address" db:"address"`
	RegularPrice  float64     `json:"regularPrice" db:"regular_price"`
	DiscountPrice *float64    `json:"discountPrice,omitempty" db:"discount_price"`
	Bedroom       int         `json:"bedroom" db:"bedroom"`
	Bathroom      int         `json:"bathroom" db:"bathroom"`
	Furnished     bool        `json:"furnished" db:"furnished"`
	Parking       bool        `json:"parking" db:"parking"`
	Offer         bool        `json:"offer" db:"offer"`
	Type          ListingType `json:"type" db:"type"`
	ImageURLs     []string    `json:"imageUrls" db:"-"`
	UserRef       string      `json:"userRef" db:"user_ref"`
	CreatedAt     string      `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt     string      `json:"updatedAt,omitempty" db:"updated_at"`
}

// HasDiscount reports whether the listing carries a usable offer price.
func (l Listing) HasDiscount() bool {
	return l.Offer && l.DiscountPrice != nil && *l.DiscountPrice > 0
}

// Price is what a card shows as the headline price.
func (l Listing) Price() float64 {
	if l.HasDiscount() {
		return *l.DiscountPrice
	}
	return l.RegularPrice
}

// Thumbnail is the first image, used as the representative card image.
func (l Listing) Thumbnail() string {
	if len(l.ImageURLs) == 0 {
		return ""
	}
	return l.ImageURLs[0]
}

// Clone returns a deep copy so snapshots cannot be mutated through aliases.
func (l Listing) Clone() Listing {
	out := l
	if l.DiscountPrice != nil {
		d := *l.DiscountPrice
		out.DiscountPrice = &d
	}
	if l.ImageURLs != nil {
		out.ImageURLs = append([]string(nil), l.ImageURLs...)
	}
	return out
}

// Float is a helper for optional prices.
func Float(v float64) *float64 { return &v }
