package idp

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// loadCachedSession restores the provider session persisted by a previous
// run. Any unreadable or malformed cache reads as "no session".
func (a *Adapter) loadCachedSession() *providerSession {
	if a.cachePath == "" {
		return nil
	}
	raw, err := os.ReadFile(a.cachePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			a.logger.Warn("reading identity cache", "path", a.cachePath, "error", err)
		}
		return nil
	}
	var session providerSession
	if err := json.Unmarshal(raw, &session); err != nil {
		a.logger.Warn("discarding malformed identity cache", "path", a.cachePath, "error", err)
		return nil
	}
	if !session.Identity.Valid() {
		return nil
	}
	return &session
}

func (a *Adapter) persistSessionLocked() {
	if a.cachePath == "" || a.session == nil {
		return
	}
	raw, err := json.Marshal(a.session)
	if err != nil {
		a.logger.Error("encoding identity cache", "error", err)
		return
	}
	if dir := filepath.Dir(a.cachePath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			a.logger.Error("creating identity cache dir", "path", dir, "error", err)
			return
		}
	}
	if err := os.WriteFile(a.cachePath, raw, 0o600); err != nil {
		a.logger.Error("writing identity cache", "path", a.cachePath, "error", err)
	}
}

func (a *Adapter) clearCacheLocked() {
	if a.cachePath == "" {
		return
	}
	if err := os.Remove(a.cachePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.logger.Warn("removing identity cache", "path", a.cachePath, "error", err)
	}
}
