package services

import (
	"context"
	"errors"

	"dreamhome/internal/apiclient"
	"dreamhome/internal/domain"
	"dreamhome/internal/images"
	"dreamhome/internal/session"
	"dreamhome/internal/store"
)

var ErrBadCreds = errors.New("invalid email or password")

// AuthAPI is the part of the remote API the auth flows use.
type AuthAPI interface {
	SignUp(ctx context.Context, in apiclient.SignUpRequest) error
	SignIn(ctx context.Context, in apiclient.SignInRequest) (domain.User, string, error)
	Google(ctx context.Context, in apiclient.GoogleProfile) (domain.User, string, error)
	UpdateUser(ctx context.Context, token, id string, in apiclient.UserUpdate, avatar *images.LocalFile) (domain.User, error)
	DeleteUser(ctx context.Context, token, id string) error
}

type AuthService struct {
	API AuthAPI
}

func NewAuthService(api AuthAPI) *AuthService { return &AuthService{API: api} }

// SignIn drives the store through start/success/failure and returns the
// access token to relay to the browser.
func (s *AuthService) SignIn(ctx context.Context, sess *session.Session, email, password string) (string, error) {
	sess.Store.Dispatch(store.SigninStart{})
	u, tok, err := s.API.SignIn(ctx, apiclient.SignInRequest{Email: email, Password: password})
	if err != nil {
		sess.Store.Dispatch(store.SigninFailure{Err: message(err, ErrBadCreds.Error())})
		if apiclient.IsStatus(err, 401) || apiclient.IsStatus(err, 404) {
			return "", ErrBadCreds
		}
		return "", err
	}
	sess.Store.Dispatch(store.SigninSuccess{User: u})
	return tok, nil
}

// Google finishes the identity-provider bridge.
func (s *AuthService) Google(ctx context.Context, sess *session.Session, p apiclient.GoogleProfile) (string, error) {
	sess.Store.Dispatch(store.SigninStart{})
	u, tok, err := s.API.Google(ctx, p)
	if err != nil {
		sess.Store.Dispatch(store.SigninFailure{Err: message(err, "Can't login with google")})
		return "", err
	}
	sess.Store.Dispatch(store.SigninSuccess{User: u})
	return tok, nil
}

func (s *AuthService) SignUp(ctx context.Context, in apiclient.SignUpRequest) error {
	return s.API.SignUp(ctx, in)
}

func (s *AuthService) SignOut(sess *session.Session) {
	sess.Store.Dispatch(store.Signout{})
}

func (s *AuthService) UpdateProfile(ctx context.Context, sess *session.Session, token string, in apiclient.UserUpdate, avatar *images.LocalFile) (domain.User, error) {
	cur := sess.User()
	if cur == nil {
		return domain.User{}, ErrSignedOut
	}
	u, err := s.API.UpdateUser(ctx, token, cur.ID, in, avatar)
	if err != nil {
		return domain.User{}, err
	}
	sess.Store.Dispatch(store.UpdateUserSuccess{User: u})
	return u, nil
}

// DeleteAccount removes the remote account and signs the session out.
func (s *AuthService) DeleteAccount(ctx context.Context, sess *session.Session, token string) error {
	cur := sess.User()
	if cur == nil {
		return ErrSignedOut
	}
	if err := s.API.DeleteUser(ctx, token, cur.ID); err != nil {
		return err
	}
	sess.Store.Dispatch(store.Signout{})
	return nil
}

// message prefers the remote API's own text.
func message(err error, fallback string) string {
	var ae *apiclient.APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}
