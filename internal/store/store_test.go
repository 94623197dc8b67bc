package store

import (
	"database/sql"
	"encoding/json"
	"testing"

	"dreamhome/internal/domain"

	"github.com/stretchr/testify/require"
)

func sampleListing() domain.Listing {
	return domain.Listing{
		ID:            "L1",
		Name:          "Cottage",
		RegularPrice:  150,
		DiscountPrice: domain.Float(100),
		Offer:         true,
		Type:          domain.TypeRent,
		ImageURLs:     []string{"a.jpg", "b.jpg"},
	}
}

func TestSetEditTargetStoresIDAndSnapshotTogether(t *testing.T) {
	s := New()
	require.False(t, s.Edit().Active())

	s.Dispatch(SetEditTarget{ID: "L1", Data: sampleListing()})
	ed := s.Edit()
	require.True(t, ed.Active())
	require.Equal(t, "L1", ed.EditID)
	require.Equal(t, "Cottage", ed.EditData.Name)

	// snapshots are detached
	ed.EditData.ImageURLs[0] = "mutated"
	*ed.EditData.DiscountPrice = 1
	again := s.Edit()
	require.Equal(t, "a.jpg", again.EditData.ImageURLs[0])
	require.Equal(t, 100.0, *again.EditData.DiscountPrice)
}

func TestClearEditTargetIsIdempotent(t *testing.T) {
	s := New()
	s.Dispatch(SetEditTarget{ID: "L1", Data: sampleListing()})
	s.Dispatch(ClearEditTarget{})
	once := s.State()
	s.Dispatch(ClearEditTarget{})
	require.Equal(t, once, s.State())
	require.Empty(t, s.Edit().EditID)
	require.Nil(t, s.Edit().EditData)
}

func TestSigninLifecycle(t *testing.T) {
	s := New()
	s.Dispatch(SigninStart{})
	require.True(t, s.State().User.Loading)

	s.Dispatch(SigninFailure{Err: "bad credentials"})
	st := s.State()
	require.False(t, st.User.Loading)
	require.Equal(t, "bad credentials", st.User.Err)
	require.Nil(t, st.User.Current)

	s.Dispatch(SigninSuccess{User: domain.User{ID: "u1", Username: "alice"}})
	st = s.State()
	require.Empty(t, st.User.Err)
	require.Equal(t, "alice", st.User.Current.Username)

	s.Dispatch(UpdateUserSuccess{User: domain.User{ID: "u1", Username: "alice2"}})
	require.Equal(t, "alice2", s.CurrentUser().Username)

	s.Dispatch(Signout{})
	require.Nil(t, s.CurrentUser())
}

func TestSubscribersSeeEveryDispatchInOrder(t *testing.T) {
	s := New()
	var seen []string
	unsub := s.Subscribe(func(st State) { seen = append(seen, "a:"+st.Edit.EditID) })
	s.Subscribe(func(st State) { seen = append(seen, "b:"+st.Edit.EditID) })

	s.Dispatch(SetEditTarget{ID: "x", Data: sampleListing()})
	unsub()
	s.Dispatch(ClearEditTarget{})

	require.Equal(t, []string{"a:x", "b:x", "b:"}, seen)
}

func TestSubscriberMayDispatch(t *testing.T) {
	s := New()
	s.Subscribe(func(st State) {
		if st.User.Current == nil && st.Edit.Active() {
			s.Dispatch(ClearEditTarget{})
		}
	})
	s.Dispatch(SetEditTarget{ID: "x", Data: sampleListing()})
	require.False(t, s.Edit().Active())
}

type memPersister struct {
	rows    map[string][]byte
	version map[string]int
	deletes int
}

func newMem() *memPersister {
	return &memPersister{rows: map[string][]byte{}, version: map[string]int{}}
}

func (m *memPersister) Load(key string) (int, []byte, error) {
	b, ok := m.rows[key]
	if !ok {
		return 0, nil, sql.ErrNoRows
	}
	return m.version[key], b, nil
}

func (m *memPersister) Save(key string, v int, b []byte) error {
	m.rows[key] = b
	m.version[key] = v
	return nil
}

func (m *memPersister) Delete(key string) error {
	m.deletes++
	delete(m.rows, key)
	return nil
}

func TestPersistWritesOnlyUserSlice(t *testing.T) {
	p := newMem()
	s := New()
	Persist(s, p, func(err error) { t.Fatalf("persist: %v", err) })

	s.Dispatch(SetEditTarget{ID: "x", Data: sampleListing()})
	require.Empty(t, p.rows)

	s.Dispatch(SigninSuccess{User: domain.User{ID: "u1", Username: "alice", Email: "a@x.io"}})
	raw := p.rows[RootKey]
	require.NotNil(t, raw)
	require.Equal(t, PersistVersion, p.version[RootKey])

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Contains(t, doc, "user")
	require.Len(t, doc, 1)

	s.Dispatch(Signout{})
	require.NotContains(t, p.rows, RootKey)
}

func TestRehydrateRestoresUser(t *testing.T) {
	p := newMem()
	first := New()
	Persist(first, p, nil)
	first.Dispatch(SigninSuccess{User: domain.User{ID: "u1", Username: "alice"}})

	second := New()
	require.NoError(t, Rehydrate(second, p))
	require.Equal(t, "u1", second.CurrentUser().ID)
	require.False(t, second.Edit().Active())
}

func TestRehydrateDiscardsOtherVersion(t *testing.T) {
	p := newMem()
	require.NoError(t, p.Save(RootKey, PersistVersion+1, []byte(`{"user":{"_id":"u1"}}`)))

	s := New()
	require.NoError(t, Rehydrate(s, p))
	require.Nil(t, s.CurrentUser())
	require.NotContains(t, p.rows, RootKey)
}

func TestRehydrateEmpty(t *testing.T) {
	s := New()
	require.NoError(t, Rehydrate(s, newMem()))
	require.Nil(t, s.CurrentUser())
}
