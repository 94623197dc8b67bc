// Package session keeps the server-side state of each browser, keyed by
// the sid cookie.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dreamhome/internal/assistant"
	"dreamhome/internal/confirm"
	"dreamhome/internal/domain"
	"dreamhome/internal/form"
	"dreamhome/internal/guard"
	"dreamhome/internal/images"
	"dreamhome/internal/store"
	"dreamhome/internal/views"
)

// Persisters hands out the persisted-state backend of one sid.
type Persisters interface {
	For(sid string) store.Persister
}

type PersistersFunc func(sid string) store.Persister

func (f PersistersFunc) For(sid string) store.Persister { return f(sid) }

type Options struct {
	MaxImages int
	Previews  images.Previewer
	Logger    *slog.Logger
}

// Session is one browser. Store and Confirms lock themselves; everything
// else is guarded by the session lock, which handlers take per request.
type Session struct {
	ID       string
	Store    *store.Store
	Confirms *confirm.Registry
	Chat     assistant.Conversation

	mu       sync.Mutex
	opts     Options
	guard    *guard.Guard
	mounted  bool
	redirect string
	flashMu  sync.Mutex
	flash    []string
	form     *form.Controller
	formStop func()
	owned    *views.Owned
	lastSeen time.Time
	stop     []func()
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) User() *domain.User { return s.Store.CurrentUser() }

// Form returns the open listing form, creating it from the current edit
// session on first use. Caller holds the lock.
func (s *Session) Form() *form.Controller {
	if s.form == nil {
		s.form = form.New(s.Store.Edit(), s.Store.CurrentUser(), s.opts.MaxImages, s.opts.Previews)
		f := s.form
		s.formStop = s.Store.Subscribe(func(st store.State) { f.StampOwner(st.User.Current) })
	}
	return s.form
}

func (s *Session) FormOpen() bool { return s.form != nil }

// CloseForm tears the form down and releases its previews. Caller holds
// the lock.
func (s *Session) CloseForm() error {
	if s.form == nil {
		return nil
	}
	s.formStop()
	err := s.form.Close()
	s.form, s.formStop = nil, nil
	return err
}

// BeginEdit records the edit target; the next Form call pre-fills from it.
func (s *Session) BeginEdit(l domain.Listing) error {
	err := s.CloseForm()
	s.Store.Dispatch(store.SetEditTarget{ID: l.ID, Data: l})
	return err
}

// StartNew drops any edit target so the form opens empty.
func (s *Session) StartNew() error {
	err := s.CloseForm()
	s.Store.Dispatch(store.ClearEditTarget{})
	return err
}

func (s *Session) Owned() *views.Owned { return s.owned }

func (s *Session) SetOwned(o *views.Owned) { s.owned = o }

// Flash queues a notice for the next rendered page. It does not need the
// session lock.
func (s *Session) Flash(msg string) {
	s.flashMu.Lock()
	s.flash = append(s.flash, msg)
	s.flashMu.Unlock()
}

// TakeFlash returns and clears pending notices.
func (s *Session) TakeFlash() []string {
	s.flashMu.Lock()
	defer s.flashMu.Unlock()
	out := s.flash
	s.flash = nil
	return out
}

// TakeRedirect returns the redirect issued by the guard since the last
// call, if any.
func (s *Session) TakeRedirect() string {
	r := s.redirect
	s.redirect = ""
	return r
}

func (s *Session) close() {
	for _, fn := range s.stop {
		fn()
	}
	if err := s.CloseForm(); err != nil {
		s.opts.Logger.Warn("release previews", "sid", s.ID, "err", err)
	}
}

// watchUser runs as a store subscriber. Signing out ends the edit,
// closes the form and arms one guard redirect.
func (s *Session) watchUser(st store.State) {
	u := st.User.Current
	if u == nil && !s.mounted {
		return
	}
	if !s.mounted {
		s.mounted = true
		s.guard.Mount(u)
		return
	}
	was := s.guard.State()
	s.guard.Observe(u)
	if was == guard.Authenticated && s.guard.State() == guard.Unauthenticated {
		if err := s.CloseForm(); err != nil {
			s.opts.Logger.Warn("release previews", "sid", s.ID, "err", err)
		}
		s.owned = nil
		s.Store.Dispatch(store.ClearEditTarget{})
	}
}

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	persist  Persisters
	opts     Options
	now      func() time.Time
}

func NewRegistry(p Persisters, opts Options) *Registry {
	if opts.MaxImages <= 0 {
		opts.MaxImages = images.DefaultMax
	}
	if opts.Previews == nil {
		opts.Previews = images.InlinePreviewer{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{sessions: map[string]*Session{}, persist: p, opts: opts, now: time.Now}
}

// Get returns the session for sid, creating and rehydrating it on first use.
func (r *Registry) Get(sid string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sid]; ok {
		s.lastSeen = r.now()
		return s
	}
	s := r.open(sid)
	r.sessions[sid] = s
	return s
}

func (r *Registry) open(sid string) *Session {
	s := &Session{
		ID:       sid,
		Store:    store.New(),
		Confirms: confirm.NewRegistry(),
		opts:     r.opts,
		lastSeen: r.now(),
	}
	s.guard = guard.New(guard.SignInPath, guard.NavigatorFunc(func(path string) { s.redirect = path }))
	log := r.opts.Logger.With("sid", sid)

	if r.persist != nil {
		p := r.persist.For(sid)
		if err := store.Rehydrate(s.Store, p); err != nil {
			log.Warn("rehydrate session", "err", err)
		}
		s.stop = append(s.stop, store.Persist(s.Store, p, func(err error) {
			log.Error("persist session", "err", err)
		}))
	}
	if u := s.Store.CurrentUser(); u != nil {
		s.mounted = true
		s.guard.Mount(u)
	}
	s.stop = append(s.stop, s.Store.Subscribe(s.watchUser))
	return s
}

// Drop forgets sid and releases what its session holds.
func (r *Registry) Drop(sid string) {
	r.mu.Lock()
	s, ok := r.sessions[sid]
	delete(r.sessions, sid)
	r.mu.Unlock()
	if ok {
		s.Lock()
		s.close()
		s.Unlock()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than maxIdle. The persisted user
// stays in the database and comes back on the next request.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	var idle []string
	r.mu.Lock()
	for sid, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, sid)
		}
	}
	r.mu.Unlock()
	for _, sid := range idle {
		r.Drop(sid)
	}
	return len(idle)
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(maxIdle); n > 0 {
				r.opts.Logger.Info("swept idle sessions", "count", n)
			}
		}
	}
}
