package store

import (
	"context"
	"sync"
	"time"

	"cutnpaste/api/internal/model"
)

// MemoryStore keeps everything in maps behind one mutex. It backs tests
// and the `store.backend = "memory"` configuration, and doubles as the
// reference for what the gorm backend must do.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]model.Account          // keyed by ID
	emails   map[string]string                 // email -> ID
	codes    map[string]model.VerificationCode // keyed by email
	sessions map[string]model.Session          // keyed by token
}

var _ Store = (*MemoryStore)(nil)

func NewMemory() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]model.Account),
		emails:   make(map[string]string),
		codes:    make(map[string]model.VerificationCode),
		sessions: make(map[string]model.Session),
	}
}

func (s *MemoryStore) FindAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, ErrNotFound
	}

	a := s.accounts[id]
	return &a, nil
}

func (s *MemoryStore) FindAccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &a, nil
}

func (s *MemoryStore) InsertAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Uniqueness is decided under the same lock as the write, so two
	// concurrent inserts with one email can't both win.
	if _, ok := s.emails[a.Email]; ok {
		return ErrDuplicateEmail
	}

	s.accounts[a.ID] = *a
	s.emails[a.Email] = a.ID
	return nil
}

func (s *MemoryStore) UpdateAccountFields(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}

	for k, v := range fields {
		switch k {
		case "verified":
			a.Verified, _ = v.(bool)
		case "email":
			if email, ok := v.(string); ok {
				delete(s.emails, a.Email)
				a.Email = email
				s.emails[email] = id
			}
		case "display_name":
			a.DisplayName, _ = v.(string)
		case "avatar_url":
			a.AvatarURL, _ = v.(string)
		case "tier":
			a.Tier, _ = v.(string)
		case "password_hash":
			a.PasswordHash, _ = v.(string)
		}
	}

	s.accounts[id] = a
	return nil
}

func (s *MemoryStore) UpsertCode(_ context.Context, c *model.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[c.Email] = *c
	return nil
}

func (s *MemoryStore) FindCode(_ context.Context, email string) (*model.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[email]
	if !ok {
		return nil, ErrNotFound
	}

	return &c, nil
}

func (s *MemoryStore) DeleteCode(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.codes, email)
	return nil
}

func (s *MemoryStore) DeleteExpiredCodes(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for email, c := range s.codes {
		if c.ExpiresAt.Before(now) {
			delete(s.codes, email)
			n++
		}
	}

	return n, nil
}

func (s *MemoryStore) InsertSession(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.Token] = *sess
	return nil
}

func (s *MemoryStore) FindSessionByToken(_ context.Context, token string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}

	return &sess, nil
}

func (s *MemoryStore) DeleteSessionsByAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, sess := range s.sessions {
		if sess.AccountID == accountID {
			delete(s.sessions, token)
		}
	}

	return nil
}

func (s *MemoryStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for token, sess := range s.sessions {
		if sess.ExpiresAt.Before(now) {
			delete(s.sessions, token)
			n++
		}
	}

	return n, nil
}
