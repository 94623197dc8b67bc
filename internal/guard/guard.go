// Package guard gates protected screens on the presence of a signed-in user.
package guard

import "dreamhome/internal/domain"

const SignInPath = "/sign-in"

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

type Navigator interface{ Navigate(path string) }

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Guard issues at most one redirect per transition into Unauthenticated.
type Guard struct {
	path    string
	nav     Navigator
	state   State
	mounted bool
}

func New(path string, nav Navigator) *Guard {
	if path == "" {
		path = SignInPath
	}
	return &Guard{path: path, nav: nav}
}

func stateOf(u *domain.User) State {
	if u == nil || u.ID == "" {
		return Unauthenticated
	}
	return Authenticated
}

func (g *Guard) State() State { return g.state }

// Mount is the first look at a protected screen. It reports whether the
// screen may render; when it may not, the redirect has been issued.
func (g *Guard) Mount(user *domain.User) bool {
	g.mounted = true
	g.state = stateOf(user)
	if g.state == Unauthenticated {
		g.nav.Navigate(g.path)
		return false
	}
	return true
}

// Observe follows later changes of the user. Staying signed out does not
// redirect again.
func (g *Guard) Observe(user *domain.User) bool {
	if !g.mounted {
		return g.Mount(user)
	}
	next := stateOf(user)
	prev := g.state
	g.state = next
	if next == Unauthenticated {
		if prev == Authenticated {
			g.nav.Navigate(g.path)
		}
		return false
	}
	return true
}
