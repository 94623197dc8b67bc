package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"dreamhome/internal/domain"
	"dreamhome/internal/images"
)

func (c *Client) ListAll(ctx context.Context) ([]domain.Listing, error) {
	var out []domain.Listing
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/api/listing"}, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, id string) (domain.Listing, error) {
	var out domain.Listing
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/api/listing/" + url.PathEscape(id)}, &out)
	return out, err
}

func (c *Client) ListByOwner(ctx context.Context, token, userID string) ([]domain.Listing, error) {
	var out []domain.Listing
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/api/user/listings/" + url.PathEscape(userID), token: token}, &out)
	return out, err
}

// Create posts JSON when there are no raw files and multipart otherwise.
func (c *Client) Create(ctx context.Context, token string, l domain.Listing, files []images.LocalFile) (domain.Listing, error) {
	l.ID = ""
	return c.saveListing(ctx, http.MethodPost, "/api/listing/create", token, l, files)
}

func (c *Client) Update(ctx context.Context, token, id string, l domain.Listing, files []images.LocalFile) (domain.Listing, error) {
	l.ID = id
	return c.saveListing(ctx, http.MethodPut, "/api/listing/update/"+url.PathEscape(id), token, l, files)
}

func (c *Client) saveListing(ctx context.Context, method, path, token string, l domain.Listing, files []images.LocalFile) (domain.Listing, error) {
	l.CreatedAt, l.UpdatedAt = "", ""
	if l.ImageURLs == nil {
		l.ImageURLs = []string{}
	}
	var (
		req request
		err error
	)
	if len(files) == 0 {
		req, err = jsonRequest(method, path, token, l)
	} else {
		req, err = multipartRequest(method, path, token, l, "files", files)
	}
	if err != nil {
		return domain.Listing{}, err
	}
	var out domain.Listing
	_, err = c.do(ctx, req, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/api/listing/delete/" + url.PathEscape(id), token: token}, nil)
	return err
}
