package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when an email/password pair does not
	// match a provider account.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCredentialPolicy is returned when the provider rejects a sign-up
	// (email already registered, password too weak).
	ErrCredentialPolicy = errors.New("credential rejected by provider policy")

	// ErrUserCancelled is returned when the user dismisses an interactive
	// third-party sign-in flow.
	ErrUserCancelled = errors.New("sign-in cancelled by user")

	// ErrProviderUnavailable is returned on transport failure talking to the
	// identity provider.
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// ErrNotAuthenticated is returned when an operation requires an active
	// provider session and none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
)
