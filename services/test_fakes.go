package services

import (
	"context"
	"sync"
	"time"

	"github.com/keralabs/passway/core"
	"github.com/keralabs/passway/pkg/crypto"
)

// FakeStorage is a test-only fake implementing core.Storage. It stores
// users and tokens in maps and exposes error fields for behavior injection.
type FakeStorage struct {
	mu     sync.RWMutex
	users  map[string]*core.User
	tokens map[string]*core.Token // keyed by token hash

	createUserErr  error
	getUserErr     error
	updateUserErr  error
	listUsersErr   error
	createTokenErr error
	getTokenErr    error
	deleteTokenErr error
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		users:  make(map[string]*core.User),
		tokens: make(map[string]*core.Token),
	}
}

func (f *FakeStorage) CreateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createUserErr != nil {
		return f.createUserErr
	}
	if _, exists := f.users[u.ID]; exists {
		return core.ErrUserExists
	}
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *FakeStorage) GetUserByID(_ context.Context, id string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorage) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorage) UpdateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateUserErr != nil {
		return f.updateUserErr
	}
	if _, exists := f.users[u.ID]; !exists {
		return core.ErrUserNotFound
	}
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *FakeStorage) ListUsers(_ context.Context, filter core.UserFilter) ([]*core.User, int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.listUsersErr != nil {
		return nil, 0, f.listUsersErr
	}

	var matched []*core.User
	for _, u := range f.users {
		if filter.Role == "" || u.Role == filter.Role {
			copied := *u
			matched = append(matched, &copied)
		}
	}
	// Newest first, matching real storage ordering.
	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			if matched[j].CreatedAt.After(matched[i].CreatedAt) {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
	}

	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (f *FakeStorage) CreateToken(_ context.Context, t *core.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createTokenErr != nil {
		return f.createTokenErr
	}
	copied := *t
	f.tokens[t.TokenHash] = &copied
	return nil
}

func (f *FakeStorage) GetTokenByHash(_ context.Context, tokenHash string) (*core.Token, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getTokenErr != nil {
		return nil, f.getTokenErr
	}
	if t, ok := f.tokens[tokenHash]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, core.ErrTokenNotFound
}

func (f *FakeStorage) DeleteTokenByHash(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteTokenErr != nil {
		return f.deleteTokenErr
	}
	if _, ok := f.tokens[tokenHash]; !ok {
		return core.ErrTokenNotFound
	}
	delete(f.tokens, tokenHash)
	return nil
}

func (f *FakeStorage) DeleteUserTokens(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteTokenErr != nil {
		return 0, f.deleteTokenErr
	}
	count := 0
	for hash, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, hash)
			count++
		}
	}
	return count, nil
}

func (f *FakeStorage) TouchToken(_ context.Context, id string, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.ID == id {
			t.LastUsedAt = &usedAt
			return nil
		}
	}
	return core.ErrTokenNotFound
}

func (f *FakeStorage) TokenCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.tokens)
}

// FakeNotifier is a test-only fake implementing core.Notifier. It records
// every send and exposes an error field for behavior injection.
type FakeNotifier struct {
	mu      sync.Mutex
	sendErr error
	links   []string
	emails  []string
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (f *FakeNotifier) SendVerificationEmail(_ context.Context, user *core.User, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.links = append(f.links, link)
	f.emails = append(f.emails, user.Email)
	return nil
}

func (f *FakeNotifier) Sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.links)
}

func (f *FakeNotifier) LastLink() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.links) == 0 {
		return ""
	}
	return f.links[len(f.links)-1]
}

// fakeCache is a test-only fake implementing core.Cache over a plain map.
type fakeCache struct {
	mu      sync.RWMutex
	entries map[string]*core.Token
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*core.Token)}
}

func (f *fakeCache) Get(tokenHash string) (*core.Token, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if t, ok := f.entries[tokenHash]; ok {
		return t, nil
	}
	return nil, core.ErrCacheNotFound
}

func (f *fakeCache) Set(tokenHash string, token *core.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[tokenHash] = token
	return nil
}

func (f *fakeCache) Delete(tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, tokenHash)
	return nil
}

func (f *fakeCache) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[string]*core.Token)
	return nil
}

func (f *fakeCache) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// testArgon2 keeps the hashing cost low so the suite stays fast.
func testArgon2() *crypto.Argon2 {
	return &crypto.Argon2{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// newTestAccounts wires a service stack over fakes. notifier is the
// interface type so a nil argument stays a nil interface and the
// no-notifier path is exercised rather than a nil concrete receiver.
func newTestAccounts(storage *FakeStorage, notifier core.Notifier) (*Accounts, *Verification) {
	signer := crypto.NewLinkSigner("test-secret-test-secret-test-secret")
	verification := NewVerification(storage, notifier, signer, "http://localhost/auth")
	accounts := NewAccounts(storage, testArgon2(), verification)
	return accounts, verification
}

func strptr(s string) *string { return &s }
