// Package idp is the sole point of contact with the external identity
// provider. It wraps the provider's REST surface and fans identity-change
// notifications out to subscribers; the session controller is the only
// intended subscriber.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tourdesk/tourdesk/internal/auth"
)

// Adapter speaks to the identity provider and tracks the current identity.
// A provider session (identity + provider tokens) is cached on disk so a
// returning user is still signed in on the next run.
type Adapter struct {
	baseURL      string
	apiKey       string
	http         *http.Client
	logger       *slog.Logger
	cachePath    string
	redirectPort int
	launchURL    func(string) error

	mu      sync.Mutex
	session *providerSession
	subs    map[int]func(*auth.Identity)
	nextSub int
}

type Options struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	CachePath    string
	RedirectPort int
	Logger       *slog.Logger

	// LaunchURL is invoked with the provider-hosted authorization URL during
	// third-party sign-in. The CLI surfaces it to the user.
	LaunchURL func(string) error
}

type providerSession struct {
	Identity     auth.Identity `json:"identity"`
	IDToken      string        `json:"id_token"`
	RefreshToken string        `json:"refresh_token"`
}

func New(opts Options) (*Adapter, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("identity provider base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	a := &Adapter{
		baseURL:      baseURL,
		apiKey:       strings.TrimSpace(opts.APIKey),
		http:         &http.Client{Timeout: opts.Timeout},
		logger:       opts.Logger.With(slog.String("component", "idp")),
		cachePath:    opts.CachePath,
		redirectPort: opts.RedirectPort,
		launchURL:    opts.LaunchURL,
		subs:         make(map[int]func(*auth.Identity)),
	}
	a.session = a.loadCachedSession()
	return a, nil
}

// Subscribe registers a listener. It is invoked once immediately with the
// current identity (possibly nil) and again on every sign-in, sign-out, or
// profile change. The returned function de-registers the listener.
func (a *Adapter) Subscribe(fn func(*auth.Identity)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	current := a.currentIdentityLocked()
	a.mu.Unlock()

	fn(current)

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// CreateAccount registers a new email/password account with the provider and
// signs it in.
func (a *Adapter) CreateAccount(ctx context.Context, email, password string) (auth.Identity, error) {
	return a.credentialFlow(ctx, "accounts:signUp", email, password)
}

// SignIn authenticates an existing email/password account.
func (a *Adapter) SignIn(ctx context.Context, email, password string) (auth.Identity, error) {
	return a.credentialFlow(ctx, "accounts:signInWithPassword", email, password)
}

func (a *Adapter) credentialFlow(ctx context.Context, endpoint, email, password string) (auth.Identity, error) {
	in := map[string]string{
		"email":    auth.NormalizeEmail(email),
		"password": password,
	}
	var out sessionResponse
	if err := a.post(ctx, endpoint, in, &out); err != nil {
		return auth.Identity{}, err
	}
	return a.installSession(out), nil
}

// UpdateProfile mutates the provider-stored display name and photo URL for
// the active session and emits an identity-change notification.
func (a *Adapter) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()
	if session == nil {
		return auth.ErrNotAuthenticated
	}

	in := map[string]string{
		"idToken":     session.IDToken,
		"displayName": strings.TrimSpace(displayName),
		"photoUrl":    strings.TrimSpace(photoURL),
	}
	var out sessionResponse
	if err := a.post(ctx, "accounts:update", in, &out); err != nil {
		return err
	}

	a.mu.Lock()
	if a.session != nil {
		a.session.Identity.DisplayName = out.DisplayName
		a.session.Identity.PhotoURL = out.PhotoURL
		a.persistSessionLocked()
	}
	current := a.currentIdentityLocked()
	subs := a.subscribersLocked()
	a.mu.Unlock()

	notify(subs, current)
	return nil
}

// SignOut ends the provider session. The local session is always cleared and
// a nil-identity notification emitted; remote revocation is best-effort and
// its failure is returned for logging only.
func (a *Adapter) SignOut(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.clearCacheLocked()
	subs := a.subscribersLocked()
	a.mu.Unlock()

	notify(subs, nil)

	if session == nil || session.RefreshToken == "" {
		return nil
	}
	in := map[string]string{"refreshToken": session.RefreshToken}
	if err := a.post(ctx, "accounts:signOut", in, nil); err != nil {
		return fmt.Errorf("revoke provider session: %w", err)
	}
	return nil
}

// CurrentIdentity returns the identity of the active provider session, or nil.
func (a *Adapter) CurrentIdentity() *auth.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentIdentityLocked()
}

type sessionResponse struct {
	Subject      string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

func (a *Adapter) installSession(resp sessionResponse) auth.Identity {
	identity := auth.Identity{
		Subject:     resp.Subject,
		Email:       auth.NormalizeEmail(resp.Email),
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoURL,
	}

	a.mu.Lock()
	a.session = &providerSession{
		Identity:     identity,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
	}
	a.persistSessionLocked()
	subs := a.subscribersLocked()
	a.mu.Unlock()

	copied := identity
	notify(subs, &copied)
	return identity
}

func (a *Adapter) currentIdentityLocked() *auth.Identity {
	if a.session == nil {
		return nil
	}
	identity := a.session.Identity
	return &identity
}

// subscribersLocked snapshots listeners in registration order so every
// subscriber observes notifications in the same sequence.
func (a *Adapter) subscribersLocked() []func(*auth.Identity) {
	ids := make([]int, 0, len(a.subs))
	for id := range a.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(*auth.Identity), 0, len(ids))
	for _, id := range ids {
		out = append(out, a.subs[id])
	}
	return out
}

func notify(subs []func(*auth.Identity), identity *auth.Identity) {
	for _, fn := range subs {
		fn(identity)
	}
}

func (a *Adapter) post(ctx context.Context, endpoint string, in, out any) error {
	reqURL := a.baseURL + "/v1/" + endpoint
	if a.apiKey != "" {
		reqURL += "?key=" + a.apiKey
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", auth.ErrProviderUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return providerErrorFromResponse(endpoint, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}
