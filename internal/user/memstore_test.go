package user

import (
	"context"
	"errors"
	"sync"

	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/user/repo"
)

var errTestStoreDown = errors.New("dial tcp 10.0.0.5:5432: connection refused")

// memStore is an in-memory Store with the same set semantics as the SQL repo.
type memStore struct {
	mu    sync.Mutex
	users map[string]*entity.User
	books map[string][]entity.SavedBook
	// err, when set, is returned by every call.
	err error
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*entity.User{}, books: map[string][]entity.SavedBook{}}
}

func (m *memStore) profile(id string) *entity.Profile {
	u := m.users[id]
	books := append([]entity.SavedBook(nil), m.books[id]...)
	return entity.NewProfile(u.ID, u.Username, u.Email, books)
}

func (m *memStore) FindByID(ctx context.Context, id string) (*entity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.users[id]; !ok {
		return nil, userrepo.ErrNotFound
	}
	return m.profile(id), nil
}

func (m *memStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, userrepo.ErrNotFound
}

func (m *memStore) Create(ctx context.Context, u *entity.User) (*entity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, userrepo.ErrDuplicateEmail
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return m.profile(u.ID), nil
}

func (m *memStore) AddSavedBook(ctx context.Context, id string, book entity.SavedBook) (*entity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.users[id]; !ok {
		return nil, nil
	}
	for _, b := range m.books[id] {
		if b.BookID == book.BookID {
			return m.profile(id), nil
		}
	}
	m.books[id] = append(m.books[id], book)
	return m.profile(id), nil
}

func (m *memStore) RemoveSavedBook(ctx context.Context, id, bookID string) (*entity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.users[id]; !ok {
		return nil, nil
	}
	kept := m.books[id][:0]
	for _, b := range m.books[id] {
		if b.BookID != bookID {
			kept = append(kept, b)
		}
	}
	m.books[id] = kept
	return m.profile(id), nil
}

var _ Store = (*memStore)(nil)
var _ Store = (*userrepo.UserRepo)(nil)
