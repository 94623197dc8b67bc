package services

import (
	"context"
	"errors"

	"dreamhome/internal/domain"
	"dreamhome/internal/form"
	"dreamhome/internal/images"
	"dreamhome/internal/session"
	"dreamhome/internal/store"
	"dreamhome/internal/views"
)

var ErrSignedOut = errors.New("not signed in")

// ListingAPI is the part of the remote API the listing screens use.
type ListingAPI interface {
	ListAll(ctx context.Context) ([]domain.Listing, error)
	Get(ctx context.Context, id string) (domain.Listing, error)
	ListByOwner(ctx context.Context, token, userID string) ([]domain.Listing, error)
	Create(ctx context.Context, token string, l domain.Listing, files []images.LocalFile) (domain.Listing, error)
	Update(ctx context.Context, token, id string, l domain.Listing, files []images.LocalFile) (domain.Listing, error)
	Delete(ctx context.Context, token, id string) error
}

type CatalogService struct {
	API ListingAPI
}

func NewCatalogService(api ListingAPI) *CatalogService { return &CatalogService{API: api} }

// Home fetches once and derives the three home sections.
func (s *CatalogService) Home(ctx context.Context) (views.Home, error) {
	all, err := s.API.ListAll(ctx)
	if err != nil {
		return views.Derive(nil), err
	}
	return views.Derive(all), nil
}

func (s *CatalogService) Listing(ctx context.Context, id string) (domain.Listing, error) {
	return s.API.Get(ctx, id)
}

// Owned fetches the user's listings and keeps them on the session for
// the delete flow. Every visit refetches. Caller holds the session lock.
func (s *CatalogService) Owned(ctx context.Context, sess *session.Session, token string) (*views.Owned, error) {
	u := sess.User()
	if u == nil {
		return nil, ErrSignedOut
	}
	ls, err := s.API.ListByOwner(ctx, token, u.ID)
	if err != nil {
		return nil, err
	}
	o := views.NewOwned(ls)
	sess.SetOwned(o)
	return o, nil
}

// Submitter routes a form submission to create or update.
func (s *CatalogService) Submitter(token string) form.SubmitFunc {
	return func(ctx context.Context, t form.Target, sub form.Submission) (domain.Listing, error) {
		if t.IsEdit() {
			return s.API.Update(ctx, token, t.ID, sub.Listing, sub.Files)
		}
		return s.API.Create(ctx, token, sub.Listing, sub.Files)
	}
}

// SubmitForm submits the session's open form. After a save the edit
// session is cleared and the form closed. Caller holds the session lock.
func (s *CatalogService) SubmitForm(ctx context.Context, sess *session.Session, token string) (form.Result, error) {
	res, err := sess.Form().Submit(ctx, s.Submitter(token))
	if res.Saved == nil {
		return res, err
	}
	sess.Store.Dispatch(store.ClearEditTarget{})
	closeErr := sess.CloseForm()
	return res, errors.Join(err, closeErr)
}

// Delete removes the listing remotely and then from the owned list. On
// failure the list is left as it was. Caller holds the session lock.
func (s *CatalogService) Delete(ctx context.Context, sess *session.Session, token, id string) error {
	if err := s.API.Delete(ctx, token, id); err != nil {
		return err
	}
	if o := sess.Owned(); o != nil {
		o.Remove(id)
	}
	return nil
}
