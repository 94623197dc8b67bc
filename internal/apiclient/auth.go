package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"dreamhome/internal/domain"
	"dreamhome/internal/images"
)

type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleProfile is what the identity provider popup hands back.
type GoogleProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

func (c *Client) SignUp(ctx context.Context, in SignUpRequest) error {
	req, err := jsonRequest(http.MethodPost, "/api/signup", "", in)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, req, nil)
	return err
}

// SignIn returns the user and the access token the API set as a cookie.
func (c *Client) SignIn(ctx context.Context, in SignInRequest) (domain.User, string, error) {
	return c.session(ctx, "/api/signin", in)
}

func (c *Client) Google(ctx context.Context, in GoogleProfile) (domain.User, string, error) {
	return c.session(ctx, "/api/google", in)
}

func (c *Client) session(ctx context.Context, path string, in any) (domain.User, string, error) {
	req, err := jsonRequest(http.MethodPost, path, "", in)
	if err != nil {
		return domain.User{}, "", err
	}
	var u domain.User
	cookies, err := c.do(ctx, req, &u)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, tokenFrom(cookies), nil
}

// UpdateUser sends multipart when an avatar file is attached.
func (c *Client) UpdateUser(ctx context.Context, token, id string, in UserUpdate, avatar *images.LocalFile) (domain.User, error) {
	path := "/api/user/" + url.PathEscape(id)
	var (
		req request
		err error
	)
	if avatar == nil {
		req, err = jsonRequest(http.MethodPut, path, token, in)
	} else {
		req, err = multipartRequest(http.MethodPut, path, token, in, "avatar", []images.LocalFile{*avatar})
	}
	if err != nil {
		return domain.User{}, err
	}
	var u domain.User
	_, err = c.do(ctx, req, &u)
	return u, err
}

func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/api/user/" + url.PathEscape(id), token: token}, nil)
	return err
}
