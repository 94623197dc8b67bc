// Package form is the create/edit listing form: typed field state, its
// validation, and the payload handed to the remote API.
package form

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"dreamhome/internal/domain"
	"dreamhome/internal/images"
	"dreamhome/internal/store"
)

// Fields mirrors the inputs of the listing form.
type Fields struct {
	Name          string
	Description   string
	Address       string
	RegularPrice  float64
	DiscountPrice float64
	Bedroom       int
	Bathroom      int
	Furnished     bool
	Parking       bool
	Offer         bool
	Type          domain.ListingType
	UserRef       string
}

func defaults() Fields {
	return Fields{Bedroom: 1, Bathroom: 1, Type: domain.TypeRent}
}

func fromListing(l domain.Listing) Fields {
	f := Fields{
		Name:         l.Name,
		Description:  l.Description,
		Address:      l.Address,
		RegularPrice: l.RegularPrice,
		Bedroom:      l.Bedroom,
		Bathroom:     l.Bathroom,
		Furnished:    l.Furnished,
		Parking:      l.Parking,
		Offer:        l.Offer,
		Type:         l.Type,
		UserRef:      l.UserRef,
	}
	if l.DiscountPrice != nil {
		f.DiscountPrice = *l.DiscountPrice
	}
	if f.Bedroom == 0 {
		f.Bedroom = 1
	}
	if f.Bathroom == 0 {
		f.Bathroom = 1
	}
	if f.Type == "" {
		f.Type = domain.TypeRent
	}
	return f
}

// FieldErrors maps an input name to the message shown under it.
type FieldErrors map[string]string

func (e FieldErrors) Has(field string) bool { _, ok := e[field]; return ok }

// Target says where a submission goes. The controller never picks the
// HTTP verb; callers switch on IsEdit.
type Target struct{ ID string }

func (t Target) IsEdit() bool { return t.ID != "" }

// Submission is the listing payload plus the raw files that back any
// "file:<n>" entries in ImageURLs.
type Submission struct {
	Listing domain.Listing
	Files   []images.LocalFile
}

type SubmitFunc func(ctx context.Context, target Target, sub Submission) (domain.Listing, error)

// Result of Submit. Exactly one of Saved, Errors or Notice is set. Err
// is the remote failure behind Notice.
type Result struct {
	Saved  *domain.Listing
	Errors FieldErrors
	Notice string
	Err    error
}

type Controller struct {
	Fields Fields
	Images *images.Editor

	editID    string
	parseErrs FieldErrors
}

// New builds a controller for the given edit session. With an active
// session every field and the image order come from the snapshot;
// otherwise the create defaults apply.
func New(edit store.EditSession, user *domain.User, maxImages int, previews images.Previewer) *Controller {
	c := &Controller{Fields: defaults()}
	var remote []string
	if edit.Active() {
		c.editID = edit.EditID
		c.Fields = fromListing(*edit.EditData)
		remote = edit.EditData.ImageURLs
	}
	c.Images = images.New(maxImages, previews, remote)
	c.StampOwner(user)
	return c
}

// StampOwner copies the signed-in user's id into UserRef. Subscribed to
// the store so a later sign-in still lands on the form.
func (c *Controller) StampOwner(user *domain.User) {
	if user != nil && user.ID != "" {
		c.Fields.UserRef = user.ID
	}
}

func (c *Controller) Target() Target { return Target{ID: c.editID} }

// Bind applies submitted form values. Unchecked checkboxes are absent
// from HTML form posts and read as false. The owner is never bound from
// input.
func (c *Controller) Bind(values map[string]string) FieldErrors {
	errs := FieldErrors{}
	f := c.Fields
	f.Name = strings.TrimSpace(values["name"])
	f.Description = strings.TrimSpace(values["description"])
	f.Address = strings.TrimSpace(values["address"])
	f.Furnished = checked(values["furnished"])
	f.Parking = checked(values["parking"])
	f.Offer = checked(values["offer"])

	if t, ok := domain.ParseListingType(values["type"]); ok {
		f.Type = t
	} else {
		errs["type"] = "Listing Type is required"
	}
	parseFloat(values, "regularPrice", "Regular Price", &f.RegularPrice, errs)
	// the discount input is not rendered without an offer; keep the old value
	if _, ok := values["discountPrice"]; ok {
		parseFloat(values, "discountPrice", "Discount Price", &f.DiscountPrice, errs)
	}
	parseInt(values, "bedroom", "Bedrooms", &f.Bedroom, errs)
	parseInt(values, "bathroom", "Bathrooms", &f.Bathroom, errs)

	c.Fields = f
	c.parseErrs = errs
	return errs
}

func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func parseFloat(values map[string]string, key, label string, dst *float64, errs FieldErrors) {
	raw := strings.TrimSpace(values[key])
	if raw == "" {
		*dst = 0
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		errs[key] = label + " must be a number"
		return
	}
	*dst = v
}

func parseInt(values map[string]string, key, label string, dst *int, errs FieldErrors) {
	raw := strings.TrimSpace(values[key])
	if raw == "" {
		*dst = 0
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		errs[key] = label + " must be a whole number"
		return
	}
	*dst = v
}

// Validate returns field-scoped errors, including those from the last Bind.
func (c *Controller) Validate() FieldErrors {
	errs := FieldErrors{}
	for k, v := range c.parseErrs {
		errs[k] = v
	}
	f := c.Fields
	required := func(key, label, v string) {
		if v == "" && !errs.Has(key) {
			errs[key] = label + " is required"
		}
	}
	required("name", "Property Name", f.Name)
	required("description", "Description", f.Description)
	required("address", "Address", f.Address)
	if !errs.Has("regularPrice") && f.RegularPrice < 1 {
		errs["regularPrice"] = "Minimum value is 1"
	}
	if !errs.Has("bedroom") && f.Bedroom < 1 {
		errs["bedroom"] = "Minimum value is 1"
	}
	if !errs.Has("bathroom") && f.Bathroom < 1 {
		errs["bathroom"] = "Minimum value is 1"
	}
	if f.Offer {
		if !errs.Has("discountPrice") && f.DiscountPrice < 1 {
			errs["discountPrice"] = "Minimum value is 1"
		}
	} else {
		// the input is hidden, so a stale parse error on it does not count
		delete(errs, "discountPrice")
	}
	return errs
}

// Payload assembles the outgoing record. DiscountPrice is left out when
// Offer is false, whatever the backing field still holds.
func (c *Controller) Payload() Submission {
	f := c.Fields
	refs, files := c.Images.Snapshot()
	l := domain.Listing{
		ID:           c.editID,
		Name:         f.Name,
		Description:  f.Description,
		Address:      f.Address,
		RegularPrice: f.RegularPrice,
		Bedroom:      f.Bedroom,
		Bathroom:     f.Bathroom,
		Furnished:    f.Furnished,
		Parking:      f.Parking,
		Offer:        f.Offer,
		Type:         f.Type,
		ImageURLs:    refs,
		UserRef:      f.UserRef,
	}
	if f.Offer {
		l.DiscountPrice = domain.Float(f.DiscountPrice)
	}
	return Submission{Listing: l, Files: files}
}

// APIMessage lets submit errors carry the server's message to the notice.
type APIMessage interface{ APIMessage() string }

// Submit validates and hands the payload to fn. On failure every field
// and image stays as it was. On success the image previews are released;
// a release failure is returned as the error next to a saved Result.
func (c *Controller) Submit(ctx context.Context, fn SubmitFunc) (Result, error) {
	if errs := c.Validate(); len(errs) > 0 {
		return Result{Errors: errs}, nil
	}
	saved, err := fn(ctx, c.Target(), c.Payload())
	if err != nil {
		return Result{Notice: c.failureNotice(err), Err: err}, nil
	}
	return Result{Saved: &saved}, c.Close()
}

func (c *Controller) failureNotice(err error) string {
	var m APIMessage
	if errors.As(err, &m) && m.APIMessage() != "" {
		return m.APIMessage()
	}
	if c.Target().IsEdit() {
		return "Failed to update listing"
	}
	return "Failed to create listing"
}

// SuccessNotice is the flash shown after a saved submission.
func SuccessNotice(t Target) string {
	if t.IsEdit() {
		return "Listing updated successfully!"
	}
	return "Listing created successfully!"
}

// Close releases every preview the form still holds.
func (c *Controller) Close() error { return c.Images.Close() }
