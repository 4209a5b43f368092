package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tourdesk/tourdesk/internal/api"
	"github.com/tourdesk/tourdesk/internal/auth"
	"github.com/tourdesk/tourdesk/internal/metrics"
	"github.com/tourdesk/tourdesk/internal/tokenstore"
)

// Provider is the slice of the identity provider adapter the controller
// depends on.
type Provider interface {
	Subscribe(func(*auth.Identity)) func()
	SignOut(ctx context.Context) error
}

// TokenMinter mints a backend session token from a verified email claim.
// Served by the public HTTP façade.
type TokenMinter interface {
	MintToken(ctx context.Context, email string) (string, error)
}

// UserDirectory looks up backend user records. Served by the authenticated
// HTTP façade, which needs the minted token already persisted.
type UserDirectory interface {
	UsersByEmail(ctx context.Context, email string) ([]api.UserRecord, error)
}

// Controller subscribes to identity-change notifications and resolves each
// identity into a backend session token and a role. Notifications are
// serialized with a generation counter: a new notification invalidates any
// in-flight resolution, and stale resolutions never write back.
type Controller struct {
	provider  Provider
	minter    TokenMinter
	directory UserDirectory
	store     tokenstore.Store
	logger    *slog.Logger

	mu           sync.Mutex
	gen          uint64
	snap         Snapshot
	firstSettled bool
	unsubscribe  func()
	watchers     map[int]chan Snapshot
	nextWatcher  int

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(provider Provider, minter TokenMinter, directory UserDirectory, store tokenstore.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		provider:  provider,
		minter:    minter,
		directory: directory,
		store:     store,
		logger:    logger.With(slog.String("component", "session")),
		snap:      Snapshot{State: StateInitializing, Role: auth.RoleUnresolved, Loading: true},
		watchers:  make(map[int]chan Snapshot),
	}
}

// Start subscribes to the identity provider exactly once. The subscription
// lives until Stop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return errors.New("session controller already started")
	}
	c.runCtx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	unsubscribe := c.provider.Subscribe(c.onIdentity)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	return nil
}

// Stop de-registers the subscription and waits for in-flight resolutions.
func (c *Controller) Stop() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	cancel := c.cancel
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

// Snapshot returns a consistent copy of the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Watch returns a channel of snapshot changes and a de-registration
// function. Slow receivers miss intermediate snapshots, never the latest:
// sends are non-blocking into a buffered channel.
func (c *Controller) Watch() (<-chan Snapshot, func()) {
	c.mu.Lock()
	id := c.nextWatcher
	c.nextWatcher++
	ch := make(chan Snapshot, 16)
	c.watchers[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// SignOut is the user-initiated sign-out. Phase 1, local invalidation, is
// unconditional and completes before return: role cleared, identity cleared,
// token removed, loading cycled so dependent views re-render. Phase 2, the
// provider-side revocation, is fire-and-forget with logged failure.
func (c *Controller) SignOut(ctx context.Context) {
	c.mu.Lock()
	c.gen++
	pulse := Snapshot{State: c.snap.State, Role: auth.RoleUnresolved, Loading: true}
	c.snap = pulse
	watchers := c.watchersLocked()
	c.mu.Unlock()
	broadcast(watchers, pulse)

	c.mu.Lock()
	if err := c.store.Clear(); err != nil {
		c.logger.Error("clearing token on sign-out", "error", err)
	}
	final := Snapshot{State: StateAnonymous, Role: auth.RoleUnresolved, Loading: false}
	c.snap = final
	c.firstSettled = true
	watchers = c.watchersLocked()
	c.mu.Unlock()
	broadcast(watchers, final)
	metrics.SessionTransitionsTotal.WithLabelValues(string(StateAnonymous)).Inc()

	revokeCtx := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.provider.SignOut(revokeCtx); err != nil {
			c.logger.Warn("provider sign-out", "error", err)
		}
	}()
}

// onIdentity is the single entry point for identity-change notifications.
func (c *Controller) onIdentity(identity *auth.Identity) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	ctx := c.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	if identity == nil {
		if err := c.store.Clear(); err != nil {
			c.logger.Error("clearing token on identity loss", "error", err)
		}
		snap := Snapshot{State: StateAnonymous, Role: auth.RoleUnresolved, Loading: false}
		c.snap = snap
		c.firstSettled = true
		watchers := c.watchersLocked()
		c.mu.Unlock()
		broadcast(watchers, snap)
		metrics.SessionTransitionsTotal.WithLabelValues(string(StateAnonymous)).Inc()
		return
	}

	ident := *identity
	snap := Snapshot{
		Identity: &ident,
		Role:     auth.RoleUnresolved,
		State:    StateAuthenticated,
		Phase:    PhaseRolePending,
		Loading:  !c.firstSettled,
	}
	c.snap = snap
	watchers := c.watchersLocked()
	c.wg.Add(1)
	c.mu.Unlock()
	broadcast(watchers, snap)
	metrics.SessionTransitionsTotal.WithLabelValues(string(StateAuthenticated)).Inc()

	go c.resolve(ctx, gen, ident)
}

// resolve runs the two-step session establishment for one notification:
// (a) mint and persist the session token, (b) look up the backend user
// record and map its role. The generation is re-checked before every shared
// write; a stale run abandons without touching anything.
func (c *Controller) resolve(ctx context.Context, gen uint64, identity auth.Identity) {
	defer c.wg.Done()

	token, err := c.minter.MintToken(ctx, identity.Email)
	if err != nil {
		c.settleFailure(gen, "minting session token", err)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		metrics.StaleResolutionsTotal.Inc()
		return
	}
	// The token must be observably persisted before the role lookup goes
	// out: the authenticated façade reads the slot, not a threaded value.
	err = c.store.Set(token)
	c.mu.Unlock()
	if err != nil {
		c.settleFailure(gen, "persisting session token", err)
		return
	}

	records, err := c.directory.UsersByEmail(ctx, identity.Email)
	if err != nil {
		c.settleFailure(gen, "looking up user record", err)
		return
	}

	c.settleResolved(gen, roleFromRecords(records, identity.Email))
}

// roleFromRecords selects the record whose email exactly matches. A matching
// record with an empty or unknown role resolves to member (the record is the
// membership); no matching record resolves to unresolved, a state route
// guards keep distinct from every named role.
func roleFromRecords(records []api.UserRecord, email string) auth.Role {
	email = auth.NormalizeEmail(email)
	for _, record := range records {
		if auth.NormalizeEmail(record.Email) != email {
			continue
		}
		if role := auth.ParseRole(record.Role); role.Known() {
			return role
		}
		return auth.RoleMember
	}
	return auth.RoleUnresolved
}

func (c *Controller) settleResolved(gen uint64, role auth.Role) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		metrics.StaleResolutionsTotal.Inc()
		return
	}
	c.snap.Role = role
	c.snap.Phase = PhaseRoleResolved
	c.snap.Loading = false
	c.firstSettled = true
	snap := c.snap
	watchers := c.watchersLocked()
	c.mu.Unlock()

	broadcast(watchers, snap)
	metrics.RoleResolutionsTotal.WithLabelValues("resolved").Inc()
	c.logger.Info("session established", "email", emailOf(snap.Identity), "role", role.String())
}

// settleFailure records the degraded state: identity retained, role
// unresolved, no crash. The subscription callback has no caller to propagate
// to, so the error is logged here.
func (c *Controller) settleFailure(gen uint64, op string, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		metrics.StaleResolutionsTotal.Inc()
		return
	}
	c.snap.Role = auth.RoleUnresolved
	c.snap.Phase = PhaseRoleFailed
	c.snap.Loading = false
	c.firstSettled = true
	snap := c.snap
	watchers := c.watchersLocked()
	c.mu.Unlock()

	broadcast(watchers, snap)
	metrics.RoleResolutionsTotal.WithLabelValues("failed").Inc()
	c.logger.Error(op, "email", emailOf(snap.Identity), "error", err)
}

func (c *Controller) watchersLocked() []chan Snapshot {
	out := make([]chan Snapshot, 0, len(c.watchers))
	for _, ch := range c.watchers {
		out = append(out, ch)
	}
	return out
}

func broadcast(watchers []chan Snapshot, snap Snapshot) {
	for _, ch := range watchers {
		select {
		case ch <- snap:
		default:
		}
	}
}

func emailOf(identity *auth.Identity) string {
	if identity == nil {
		return ""
	}
	return identity.Email
}
