package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
)

const vaultOpTimeout = 10 * time.Second

// VaultStore keeps the token in a HashiCorp Vault KV v2 secret, for
// deployments that must keep bearer credentials off the filesystem.
type VaultStore struct {
	client *vaultapi.Client
	mount  string
	path   string
	field  string
}

type VaultOptions struct {
	Address string
	Token   string
	Mount   string
	Path    string
	Field   string
}

func NewVaultStore(opts VaultOptions) (*VaultStore, error) {
	opts.Address = strings.TrimSpace(opts.Address)
	if opts.Address == "" {
		return nil, errors.New("vault address is required")
	}
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("vault token is required")
	}
	if opts.Mount == "" {
		opts.Mount = "secret"
	}
	if opts.Path == "" {
		opts.Path = "tourdesk/session"
	}
	if opts.Field == "" {
		opts.Field = "token"
	}

	cfg := vaultapi.DefaultConfig()
	cfg.Address = opts.Address
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	client.SetToken(opts.Token)

	return &VaultStore{
		client: client,
		mount:  opts.Mount,
		path:   opts.Path,
		field:  opts.Field,
	}, nil
}

func (s *VaultStore) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear()
	}

	ctx, cancel := context.WithTimeout(context.Background(), vaultOpTimeout)
	defer cancel()

	_, err := s.client.KVv2(s.mount).Put(ctx, s.path, map[string]any{s.field: token})
	if err != nil {
		return fmt.Errorf("vault put: %w", err)
	}
	return nil
}

func (s *VaultStore) Get() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), vaultOpTimeout)
	defer cancel()

	secret, err := s.client.KVv2(s.mount).Get(ctx, s.path)
	if err != nil {
		if errors.Is(err, vaultapi.ErrSecretNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("vault get: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", nil
	}
	token, _ := secret.Data[s.field].(string)
	return strings.TrimSpace(token), nil
}

func (s *VaultStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), vaultOpTimeout)
	defer cancel()

	if err := s.client.KVv2(s.mount).Delete(ctx, s.path); err != nil {
		return fmt.Errorf("vault delete: %w", err)
	}
	return nil
}
