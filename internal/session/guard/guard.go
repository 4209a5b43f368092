// Package guard applies the session controller's {identity, role, loading}
// contract to routing: neutral while loading, sign-in redirect with the
// requested path preserved when anonymous, and a distinct degraded outcome
// when the backend session could not be established.
package guard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tourdesk/tourdesk/internal/auth"
	"github.com/tourdesk/tourdesk/internal/session"
)

// Outcome is the routing decision for one request.
type Outcome string

const (
	// OutcomePending: the snapshot is still loading; render a neutral state
	// and do not evaluate the role.
	OutcomePending Outcome = "pending"

	// OutcomeSignIn: no identity; send the user to the sign-in entry point.
	OutcomeSignIn Outcome = "sign_in"

	// OutcomeDegraded: identity present but no backend session; surfaced
	// distinctly from being signed out.
	OutcomeDegraded Outcome = "degraded"

	OutcomeForbidden Outcome = "forbidden"
	OutcomeAllow     Outcome = "allow"
)

// Decide maps a snapshot and a role requirement onto an outcome. A zero
// wantRole (RoleUnresolved) requires only an established session.
func Decide(snap session.Snapshot, wantRole auth.Role) Outcome {
	if snap.Loading || !snap.Settled() {
		return OutcomePending
	}
	if snap.Identity == nil {
		return OutcomeSignIn
	}
	if snap.Degraded() || !snap.Role.Known() {
		return OutcomeDegraded
	}
	if wantRole.Known() && snap.Role != wantRole {
		// Admins pass host gates; the dashboard nests that way.
		if !(wantRole == auth.RoleHost && snap.Role == auth.RoleAdmin) {
			return OutcomeForbidden
		}
	}
	return OutcomeAllow
}

// Snapshotter is the read-only slice of the session controller the
// middleware needs.
type Snapshotter interface {
	Snapshot() session.Snapshot
}

const signInPath = "/login"

// RequireSession blocks until the session is settled and established.
func RequireSession(ctrl Snapshotter) echo.MiddlewareFunc {
	return requireOutcome(ctrl, auth.RoleUnresolved)
}

// RequireRole additionally gates on the resolved role.
func RequireRole(ctrl Snapshotter, role auth.Role) echo.MiddlewareFunc {
	return requireOutcome(ctrl, role)
}

func requireOutcome(ctrl Snapshotter, role auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch Decide(ctrl.Snapshot(), role) {
			case OutcomeAllow:
				return next(c)
			case OutcomePending:
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "session pending"})
			case OutcomeDegraded:
				if isAPIRequest(c) {
					return c.JSON(http.StatusForbidden, map[string]string{"error": "account unverified"})
				}
				return c.Redirect(http.StatusSeeOther, "/account/unverified")
			case OutcomeForbidden:
				if isAPIRequest(c) {
					return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
				}
				return echo.NewHTTPError(http.StatusForbidden)
			default:
				return handleUnauth(c)
			}
		}
	}
}

func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Request().URL.Path, "/api/")
}

func handleUnauth(c echo.Context) error {
	if isAPIRequest(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	location := signInPath
	if c.Request().Method == http.MethodGet {
		if next := SanitizeNext(c.Request().URL.RequestURI()); next != "" {
			location = signInPath + "?next=" + url.QueryEscape(next)
		}
	}
	return c.Redirect(http.StatusSeeOther, location)
}

// SanitizeNext keeps post-login redirects on-site: relative paths only, no
// protocol-relative or backslash tricks, never back into the login page.
func SanitizeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || len(next) > 2048 {
		return ""
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}

	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" || u.Scheme != "" {
		return ""
	}
	if u.Path == signInPath || strings.HasPrefix(u.Path, signInPath+"/") {
		return ""
	}
	if strings.Contains(next, "\\") {
		return ""
	}
	return next
}
