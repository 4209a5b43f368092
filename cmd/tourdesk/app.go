package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tourdesk/tourdesk/internal/api"
	"github.com/tourdesk/tourdesk/internal/auth"
	"github.com/tourdesk/tourdesk/internal/booking"
	"github.com/tourdesk/tourdesk/internal/config"
	"github.com/tourdesk/tourdesk/internal/idp"
	"github.com/tourdesk/tourdesk/internal/logging"
	"github.com/tourdesk/tourdesk/internal/metrics"
	"github.com/tourdesk/tourdesk/internal/session"
	"github.com/tourdesk/tourdesk/internal/session/guard"
	"github.com/tourdesk/tourdesk/internal/tokenstore"
)

// app wires config, the token store, both API facades, the provider adapter
// and the session controller for one command invocation.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    tokenstore.Store
	public   *api.Public
	authed   *api.Authed
	adapter  *idp.Adapter
	ctrl     *session.Controller
	bookings *booking.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return buildApp(cmd, cfg)
}

func buildApp(cmd *cobra.Command, cfg config.Config) (*app, error) {
	logger, err := logging.BootstrapFromEnv(logging.BootstrapOptions{
		Command: cmd.CommandPath(),
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	store, err := newTokenStore(cfg)
	if err != nil {
		return nil, err
	}

	adapter, err := idp.New(idp.Options{
		BaseURL:      cfg.IDPBaseURL,
		APIKey:       cfg.IDPAPIKey,
		Timeout:      cfg.HTTPTimeout,
		CachePath:    cfg.IDPCachePath,
		RedirectPort: cfg.IDPRedirectPort,
		Logger:       logger,
		LaunchURL: func(u string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser to continue:\n\n  %s\n\n", u)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	public := api.NewPublic(cfg.APIBaseURL, cfg.HTTPTimeout, logger)
	authed := api.NewAuthed(cfg.APIBaseURL, cfg.HTTPTimeout, store, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		public:   public,
		authed:   authed,
		adapter:  adapter,
		ctrl:     session.New(adapter, public, authed, store, logger),
		bookings: booking.NewClient(authed, logger),
	}, nil
}

func newTokenStore(cfg config.Config) (tokenstore.Store, error) {
	switch cfg.TokenBackend {
	case "memory":
		return tokenstore.NewMemStore(), nil
	case "vault":
		return tokenstore.NewVaultStore(tokenstore.VaultOptions{
			Address: cfg.VaultAddr,
			Token:   cfg.VaultToken,
			Mount:   cfg.VaultMount,
			Path:    cfg.VaultSecretPath,
		})
	default:
		return tokenstore.NewFileStore(cfg.TokenPath), nil
	}
}

// run starts the controller (and the optional metrics listener), waits for a
// settled snapshot and hands it to fn. The controller is stopped on the way
// out so pending resolutions cannot write after the command returns.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, snap session.Snapshot) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.MetricsAddr != "" {
		metrics.StartServer(ctx, a.cfg.MetricsAddr)
	}

	if err := a.ctrl.Start(ctx); err != nil {
		return err
	}
	defer a.ctrl.Stop()

	snap, err := a.waitSettled(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, snap)
}

func (a *app) waitSettled(ctx context.Context) (session.Snapshot, error) {
	ch, cancel := a.ctrl.Watch()
	defer cancel()

	for {
		snap := a.ctrl.Snapshot()
		if snap.Settled() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

// requireRole maps a guard decision onto command errors. RoleUnresolved as
// the requirement means any established session passes.
func requireRole(snap session.Snapshot, role auth.Role) error {
	switch guard.Decide(snap, role) {
	case guard.OutcomeAllow:
		return nil
	case guard.OutcomeSignIn:
		return auth.ErrNotAuthenticated
	case guard.OutcomeDegraded:
		return errors.New("signed in but no backend session could be established; try again or sign out and back in")
	case guard.OutcomeForbidden:
		return fmt.Errorf("this action requires the %s role", role)
	default:
		return errors.New("session is still settling")
	}
}
