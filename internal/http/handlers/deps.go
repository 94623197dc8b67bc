package handlers

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"dreamhome/internal/apiclient"
	"dreamhome/internal/assistant"
	"dreamhome/internal/config"
	"dreamhome/internal/images"
	"dreamhome/internal/repos"
	"dreamhome/internal/services"
	"dreamhome/internal/session"
	"dreamhome/internal/store"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	Sessions *session.Registry

	AuthHandler    *AuthHandler
	HomeHandler    *HomeHandler
	ListingHandler *ListingHandler
	ShowHandler    *ShowListingHandler
	ProfileHandler *ProfileHandler
	ChatHandler    *ChatHandler
}

// NewDeps wires the remote API client, the per-browser session registry
// (persisted in db) and the screen handlers.
func NewDeps(db *sqlx.DB, cfg config.Config, logger *slog.Logger, httpClient *http.Client) (*Deps, error) {
	previews, err := images.NewDiskPreviewer(filepath.Join(cfg.MediaDir, "previews"), "/media/previews")
	if err != nil {
		return nil, err
	}
	states := repos.NewStateRepo(db)
	sessions := session.NewRegistry(
		session.PersistersFunc(func(sid string) store.Persister { return states.For(sid) }),
		session.Options{MaxImages: cfg.MaxImages, Previews: previews, Logger: logger},
	)

	api := apiclient.New(cfg.APIBaseURL, httpClient)
	catalog := services.NewCatalogService(api)
	auth := services.NewAuthService(api)
	chat := assistant.New(cfg.AssistantURL, httpClient, logger)

	delay := cfg.TypingDelay
	if delay <= 0 {
		delay = assistant.DefaultTypingDelay
	}
	return &Deps{
		Sessions:       sessions,
		AuthHandler:    &AuthHandler{Auth: auth, SecureCookie: cfg.SecureCookie},
		HomeHandler:    &HomeHandler{Catalog: catalog},
		ListingHandler: &ListingHandler{Catalog: catalog, MaxFileBytes: cfg.MaxFileBytes(), SecureCookie: cfg.SecureCookie},
		ShowHandler:    &ShowListingHandler{Catalog: catalog, SecureCookie: cfg.SecureCookie},
		ProfileHandler: &ProfileHandler{Auth: auth, SecureCookie: cfg.SecureCookie, MaxFileBytes: cfg.MaxFileBytes()},
		ChatHandler:    &ChatHandler{Assistant: chat, TypingDelay: delay, Now: time.Now},
	}, nil
}
