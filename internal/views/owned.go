package views

import "dreamhome/internal/domain"

// Owned is the signed-in user's listings as last fetched. Deletes are
// applied locally without refetching.
type Owned struct {
	items []domain.Listing
}

func NewOwned(ls []domain.Listing) *Owned {
	return &Owned{items: append([]domain.Listing(nil), ls...)}
}

// Items, Len and Find treat a nil list as empty.
func (o *Owned) Items() []domain.Listing {
	if o == nil {
		return nil
	}
	return append([]domain.Listing(nil), o.items...)
}

func (o *Owned) Len() int {
	if o == nil {
		return 0
	}
	return len(o.items)
}

func (o *Owned) Find(id string) (domain.Listing, bool) {
	if o == nil {
		return domain.Listing{}, false
	}
	for _, l := range o.items {
		if l.ID == id {
			return l, true
		}
	}
	return domain.Listing{}, false
}

// Remove drops the listing with id and reports whether it was present.
func (o *Owned) Remove(id string) bool {
	for i, l := range o.items {
		if l.ID == id {
			o.items = append(o.items[:i:i], o.items[i+1:]...)
			return true
		}
	}
	return false
}
