/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	keyPlayerName = "playerName"
	keyUserID     = "userId"
	keySessionID  = "sessionId"
	keyGameID     = "gameId"

	userIDLength = 64
)

// Identity is durable key/value storage for who this client is. Values are
// opaque; expired entries read as absent.
type Identity interface {
	Get(key string) (string, bool)
	Set(key, value string, ttl time.Duration) error
	Delete(key string) error
}

type entry struct {
	value   string
	expires time.Time
}

type memoryIdentity struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func newMemoryIdentity() *memoryIdentity {
	return &memoryIdentity{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (m *memoryIdentity) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expires) {
		return "", false
	}

	return e.value, true
}

func (m *memoryIdentity) Set(key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{value: value, expires: m.now().Add(ttl)}

	return nil
}

func (m *memoryIdentity) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)

	return nil
}

// fileIdentity keeps identity in a small YAML file through its own viper
// instance, so a restarted client is the same player.
type fileIdentity struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
	now  func() time.Time
}

func openIdentity(path string) (*fileIdentity, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("identity file %q must end in .yaml or .yml", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist), errors.As(err, &notFound):
	default:
		return nil, err
	}

	return &fileIdentity{v: v, path: path, now: time.Now}, nil
}

func defaultIdentityPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, "hat", "identity.yaml")
}

func (f *fileIdentity) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value := f.v.GetString(key + ".value")
	if value == "" {
		return "", false
	}

	expires, err := time.Parse(time.RFC3339, f.v.GetString(key+".expires"))
	if err != nil || !f.now().Before(expires) {
		return "", false
	}

	return value, true
}

func (f *fileIdentity) Set(key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.v.Set(key+".value", value)
	f.v.Set(key+".expires", f.now().Add(ttl).UTC().Format(time.RFC3339))

	return f.v.WriteConfigAs(f.path)
}

// Delete blanks the entry; viper has no way to unset a key.
func (f *fileIdentity) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.v.Set(key+".value", "")
	f.v.Set(key+".expires", "")

	return f.v.WriteConfigAs(f.path)
}

// randomID draws n alphanumerics. Bytes at or above the largest multiple of
// the alphabet size are thrown away so every letter is equally likely.
func randomID(n int) string {
	const (
		letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
		limit   = 256 - 256%len(letters)
	)

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		for _, b := range buf {
			if int(b) >= limit || len(out) == n {
				continue
			}
			out = append(out, letters[int(b)%len(letters)])
		}
	}

	return string(out)
}

// credentials are what the server reads from the handshake cookies.
type credentials struct {
	UserID    string
	SessionID string
}

// bootstrapIdentity reuses the persisted user id when there is one, starts a
// fresh session, and persists both along with the display name.
func bootstrapIdentity(ids Identity, name, gameID string, ttl time.Duration) (credentials, error) {
	userID, ok := ids.Get(keyUserID)
	if !ok || userID == "undefined" {
		userID = randomID(userIDLength)
	}

	creds := credentials{
		UserID:    userID,
		SessionID: uuid.NewString(),
	}

	if err := ids.Set(keySessionID, creds.SessionID, ttl); err != nil {
		return creds, err
	}
	if err := ids.Set(keyUserID, creds.UserID, ttl); err != nil {
		return creds, err
	}
	if err := ids.Set(keyPlayerName, name, ttl); err != nil {
		return creds, err
	}
	if gameID != "" {
		if err := ids.Set(keyGameID, gameID, ttl); err != nil {
			return creds, err
		}
	}

	return creds, nil
}
