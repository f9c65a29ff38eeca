package remote

import (
	"fmt"
	"sync"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
)

// CredentialCache derives and caches per-account sessions. The sync engine
// calls Invalidate when a call fails with an authentication mismatch, so the
// next pass re-derives the session instead of reusing a stale one.
type CredentialCache interface {
	Session(account models.Account) (Session, error)
	Invalidate(accountID int64)
}

// Credentials implements CredentialCache from statically configured app
// tokens, keyed by account name.
type Credentials struct {
	mu       sync.Mutex
	tokens   map[string]string
	sessions map[int64]Session
}

// Verify *Credentials satisfies CredentialCache at compile time.
var _ CredentialCache = (*Credentials)(nil)

// NewCredentials creates a cache over the given account-name to app-token
// mapping.
func NewCredentials(tokens map[string]string) *Credentials {
	return &Credentials{
		tokens:   tokens,
		sessions: make(map[int64]Session),
	}
}

// Session returns the cached session for the account, deriving one from the
// configured token on first use.
func (c *Credentials) Session(account models.Account) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[account.ID]; ok {
		return s, nil
	}
	token, ok := c.tokens[account.Name]
	if !ok {
		return Session{}, fmt.Errorf("remote: no credentials configured for account %q", account.Name)
	}
	s := Session{
		BaseURL:  account.URL,
		Username: account.Username,
		Token:    token,
	}
	c.sessions[account.ID] = s
	return s, nil
}

// Invalidate drops the cached session for the account.
func (c *Credentials) Invalidate(accountID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, accountID)
}
