// Package store holds per-browser application state: the signed-in user
// and the listing edit session. State changes only through Dispatch.
package store

import (
	"sync"

	"dreamhome/internal/domain"
)

// EditSession is the listing currently being edited. An empty EditID
// means the form is creating a new listing.
type EditSession struct {
	EditID   string
	EditData *domain.Listing
}

// Active reports whether an edit target is set.
func (e EditSession) Active() bool { return e.EditID != "" && e.EditData != nil }

type UserState struct {
	Current *domain.User
	Err     string
	Loading bool
}

type State struct {
	User UserState
	Edit EditSession
}

// Action is one of the named mutations below.
type Action interface{ action() }

type (
	SigninStart       struct{}
	SigninSuccess     struct{ User domain.User }
	SigninFailure     struct{ Err string }
	Signout           struct{}
	UpdateUserSuccess struct{ User domain.User }
	SetEditTarget     struct {
		ID   string
		Data domain.Listing
	}
	ClearEditTarget struct{}
)

func (SigninStart) action()       {}
func (SigninSuccess) action()     {}
func (SigninFailure) action()     {}
func (Signout) action()           {}
func (UpdateUserSuccess) action() {}
func (SetEditTarget) action()     {}
func (ClearEditTarget) action()   {}

func reduce(s State, a Action) State {
	switch a := a.(type) {
	case SigninStart:
		s.User.Loading = true
		s.User.Err = ""
	case SigninSuccess:
		u := a.User
		s.User = UserState{Current: &u}
	case SigninFailure:
		s.User.Loading = false
		s.User.Err = a.Err
	case Signout:
		s.User = UserState{}
	case UpdateUserSuccess:
		u := a.User
		s.User.Current = &u
	case SetEditTarget:
		data := a.Data.Clone()
		s.Edit = EditSession{EditID: a.ID, EditData: &data}
	case ClearEditTarget:
		s.Edit = EditSession{}
	}
	return s
}

type Store struct {
	mu     sync.Mutex
	state  State
	nextID int
	subs   map[int]func(State)
}

func New() *Store {
	return &Store{subs: map[int]func(State){}}
}

// State returns a copy of the current state. The edit snapshot is cloned
// so callers cannot write through it.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.state)
}

func snapshot(st State) State {
	if st.Edit.EditData != nil {
		d := st.Edit.EditData.Clone()
		st.Edit.EditData = &d
	}
	if st.User.Current != nil {
		u := *st.User.Current
		st.User.Current = &u
	}
	return st
}

// CurrentUser is a selector for the signed-in user, nil when signed out.
func (s *Store) CurrentUser() *domain.User { return s.State().User.Current }

// Edit is a selector for the edit session.
func (s *Store) Edit() EditSession { return s.State().Edit }

// Dispatch applies the action and then notifies subscribers outside the
// lock, so a subscriber may read state or dispatch again.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	s.state = reduce(s.state, a)
	st := snapshot(s.state)
	subs := make([]func(State), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

// Subscribe registers fn and returns a func that removes it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
