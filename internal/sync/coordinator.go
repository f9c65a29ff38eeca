package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/remote"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/store"
)

// Callback receives the result of one completed synchronization pass. It
// fires exactly once and is discarded afterwards.
type Callback func(models.SyncResult)

// Listener observes every completed pass, regardless of which account ran.
type Listener func(accountID int64, result models.SyncResult)

// StartListener observes the start of every pass.
type StartListener func(accountID int64)

// accountState tracks one account's in-flight pass and queued requests.
type accountState struct {
	active    bool
	pending   bool
	pushOnly  bool
	callbacks []Callback
}

// Coordinator is the upward interface of the engine. It serializes passes
// per account, coalesces requests that arrive while a pass is running into
// one follow-up pass, and delivers completion callbacks. Accounts are
// independent of each other.
type Coordinator struct {
	syncer         *Syncer
	store          store.Store
	creds          remote.CredentialCache
	logger         *slog.Logger
	listeners      []Listener
	startListeners []StartListener

	mu       stdsync.Mutex
	accounts map[int64]*accountState
}

// NewCoordinator creates a Coordinator over the given syncer.
func NewCoordinator(syncer *Syncer, st store.Store, creds remote.CredentialCache, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		syncer:   syncer,
		store:    st,
		creds:    creds,
		logger:   logger,
		accounts: make(map[int64]*accountState),
	}
}

// AddListener registers an observer for every completed pass. Listeners
// must be registered before the first RunSync call.
func (c *Coordinator) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

// AddStartListener registers an observer for the start of every pass. Like
// AddListener, it must be called before the first RunSync.
func (c *Coordinator) AddStartListener(l StartListener) {
	c.startListeners = append(c.startListeners, l)
}

// RunSync requests one synchronization pass for the account and returns
// immediately; the pass runs on a background goroutine. onComplete (if
// non-nil) fires once after the next pass that starts at or after this
// request completes. If a pass is already in flight the request is
// coalesced into a single follow-up pass.
func (c *Coordinator) RunSync(accountID int64, pushOnly bool, onComplete Callback) {
	c.mu.Lock()
	st := c.accounts[accountID]
	if st == nil {
		st = &accountState{pushOnly: true}
		c.accounts[accountID] = st
	}
	if onComplete != nil {
		st.callbacks = append(st.callbacks, onComplete)
	}
	if st.active {
		// Coalesce: one follow-up pass serves every request that arrived
		// during the current one. Pull is sticky: a single full request
		// makes the follow-up a full pass.
		st.pending = true
		st.pushOnly = st.pushOnly && pushOnly
		c.mu.Unlock()
		return
	}
	st.active = true
	st.pushOnly = true
	c.mu.Unlock()

	go c.run(accountID, pushOnly)
}

// run executes passes for the account until no follow-up is pending.
func (c *Coordinator) run(accountID int64, pushOnly bool) {
	for {
		c.mu.Lock()
		st := c.accounts[accountID]
		callbacks := st.callbacks
		st.callbacks = nil
		st.pending = false
		c.mu.Unlock()

		for _, l := range c.startListeners {
			l(accountID)
		}
		result := c.runOnce(accountID, pushOnly)

		for _, cb := range callbacks {
			cb(result)
		}
		for _, l := range c.listeners {
			l(accountID, result)
		}

		c.mu.Lock()
		if st.pending {
			pushOnly = st.pushOnly
			st.pushOnly = true
			c.mu.Unlock()
			continue
		}
		st.active = false
		c.mu.Unlock()
		return
	}
}

// runOnce resolves the account and its session, then executes one pass.
// There is no cancellation mid-pass; network timeouts belong to the remote
// client and surface as ordinary failures.
func (c *Coordinator) runOnce(accountID int64, pushOnly bool) models.SyncResult {
	account, err := c.store.GetAccount(accountID)
	if err != nil {
		return models.SyncResult{Errors: []error{fmt.Errorf("sync: resolve account %d: %w", accountID, err)}}
	}
	session, err := c.creds.Session(*account)
	if err != nil {
		return models.SyncResult{Errors: []error{err}}
	}
	return c.syncer.Run(context.Background(), *account, session, pushOnly)
}

// SyncAll runs one pass for every configured account, accounts in parallel,
// and blocks until all have completed. ctx bounds only the waiting, not the
// passes themselves.
func (c *Coordinator) SyncAll(ctx context.Context, pushOnly bool) error {
	accounts, err := c.store.ListAccounts()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, account := range accounts {
		g.Go(func() error {
			done := make(chan models.SyncResult, 1)
			c.RunSync(account.ID, pushOnly, func(r models.SyncResult) { done <- r })
			select {
			case r := <-done:
				if !r.Successful() {
					c.logger.Warn("sync: pass finished with failures",
						slog.Int64("account", account.ID), slog.Int("errors", len(r.Errors)))
				}
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}
