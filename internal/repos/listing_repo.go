package repos

import (
	"database/sql"
	"encoding/json"

	"dreamhome/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ListingRepo struct{ db *sqlx.DB }

func NewListingRepo(db *sqlx.DB) *ListingRepo { return &ListingRepo{db: db} }

type listingRow struct {
	ID            string          `db:"id"`
	UserRef       string          `db:"user_ref"`
	Name          string          `db:"name"`
	Description   string          `db:"description"`
	Address       string          `db:"address"`
	RegularPrice  float64         `db:"regular_price"`
	DiscountPrice sql.NullFloat64 `db:"discount_price"`
	Bedroom       int             `db:"bedroom"`
	Bathroom      int             `db:"bathroom"`
	Furnished     bool            `db:"furnished"`
	Parking       bool            `db:"parking"`
	Offer         bool            `db:"offer"`
	Type          string          `db:"type"`
	ImagesJSON    string          `db:"images_json"`
	CreatedAt     string          `db:"created_at"`
	UpdatedAt     string          `db:"updated_at"`
}

const listingCols = `id, user_ref, name, description, address, regular_price, discount_price,
    bedroom, bathroom, furnished, parking, offer, type, images_json, created_at, updated_at`

func (r listingRow) toDomain() domain.Listing {
	l := domain.Listing{
		ID: r.ID, UserRef: r.UserRef, Name: r.Name, Description: r.Description, Address: r.Address,
		RegularPrice: r.RegularPrice, Bedroom: r.Bedroom, Bathroom: r.Bathroom,
		Furnished: r.Furnished, Parking: r.Parking, Offer: r.Offer, Type: domain.ListingType(r.Type),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, ImageURLs: []string{},
	}
	if r.DiscountPrice.Valid {
		l.DiscountPrice = domain.Float(r.DiscountPrice.Float64)
	}
	_ = json.Unmarshal([]byte(r.ImagesJSON), &l.ImageURLs)
	return l
}

func toDomainList(rows []listingRow) []domain.Listing {
	out := make([]domain.Listing, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

func (r *ListingRepo) All() ([]domain.Listing, error) {
	var rows []listingRow
	if err := r.db.Select(&rows, `SELECT `+listingCols+` FROM listings ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

func (r *ListingRepo) ByOwner(userID string) ([]domain.Listing, error) {
	var rows []listingRow
	if err := r.db.Select(&rows, `SELECT `+listingCols+` FROM listings WHERE user_ref = ? ORDER BY created_at DESC`, userID); err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

func (r *ListingRepo) Get(id string) (domain.Listing, error) {
	var row listingRow
	if err := r.db.Get(&row, `SELECT `+listingCols+` FROM listings WHERE id = ?`, id); err != nil {
		return domain.Listing{}, err
	}
	return row.toDomain(), nil
}

func nullable(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func imagesJSON(urls []string) string {
	if urls == nil {
		urls = []string{}
	}
	b, _ := json.Marshal(urls)
	return string(b)
}

func (r *ListingRepo) Create(l domain.Listing) error {
	_, err := r.db.Exec(`
	  INSERT INTO listings(`+listingCols+`)
	  VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.ID, l.UserRef, l.Name, l.Description, l.Address, l.RegularPrice, nullable(l.DiscountPrice),
		l.Bedroom, l.Bathroom, l.Furnished, l.Parking, l.Offer, string(l.Type), imagesJSON(l.ImageURLs),
		l.CreatedAt, l.UpdatedAt)
	return err
}

// Update overwrites every client-editable column. Owner and created_at stay.
func (r *ListingRepo) Update(l domain.Listing) error {
	res, err := r.db.Exec(`
	  UPDATE listings SET
	    name=?, description=?, address=?, regular_price=?, discount_price=?,
	    bedroom=?, bathroom=?, furnished=?, parking=?, offer=?, type=?, images_json=?, updated_at=?
	  WHERE id=?`,
		l.Name, l.Description, l.Address, l.RegularPrice, nullable(l.DiscountPrice),
		l.Bedroom, l.Bathroom, l.Furnished, l.Parking, l.Offer, string(l.Type), imagesJSON(l.ImageURLs),
		l.UpdatedAt, l.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ListingRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM listings WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
