package internal

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	tokenKey       = "libraToken"
	userKey        = "libraUser"
	legacyTokenKey = "token"
	// legacyCurrentUserKey is the fallback read when the canonical user is missing
	legacyCurrentUserKey = "currentUser"
)

// Older page code reads the profile from these keys directly, so every write
// mirrors the canonical user under all of them.
var legacyUserKeys = []string{"mironUser", legacyCurrentUserKey, "user"}

// SessionStore persists the bearer token and user profile
type SessionStore struct {
	kv KVStore
}

// NewSessionStore creates a session store on top of kv
func NewSessionStore(kv KVStore) *SessionStore {
	return &SessionStore{kv: kv}
}

// Read returns the stored session. Missing, unreadable or malformed entries
// are reported as absent.
func (s *SessionStore) Read(ctx context.Context) Session {
	var sess Session

	sess.Token = s.getString(ctx, tokenKey)
	if sess.Token == "" {
		sess.Token = s.getString(ctx, legacyTokenKey)
	}

	sess.User = s.getUser(ctx, userKey)
	if sess.User == nil {
		sess.User = s.getUser(ctx, legacyCurrentUserKey)
	}

	return sess
}

// Write stores token and, when user is non-nil, the same serialized user
// under the canonical key and every legacy alias, as one batch.
func (s *SessionStore) Write(ctx context.Context, token string, user *User) error {
	ops := []KVOp{SetOp(tokenKey, token)}

	if user != nil {
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}
		ops = append(ops, SetOp(userKey, string(data)))
		for _, alias := range legacyUserKeys {
			ops = append(ops, SetOp(alias, string(data)))
		}
	}

	return s.kv.Apply(ctx, ops...)
}

// Clear removes the canonical and legacy keys
func (s *SessionStore) Clear(ctx context.Context) error {
	ops := []KVOp{DeleteOp(tokenKey), DeleteOp(userKey), DeleteOp(legacyTokenKey)}
	for _, alias := range legacyUserKeys {
		ops = append(ops, DeleteOp(alias))
	}
	return s.kv.Apply(ctx, ops...)
}

// HasSession reports whether a non-empty canonical token is stored. The token
// is not validated against the server.
func (s *SessionStore) HasSession(ctx context.Context) bool {
	return s.getString(ctx, tokenKey) != ""
}

func (s *SessionStore) getString(ctx context.Context, key string) string {
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		LogWarn("Failed to read %s: %v", key, err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (s *SessionStore) getUser(ctx context.Context, key string) *User {
	raw := s.getString(ctx, key)
	if raw == "" {
		return nil
	}
	obj, err := decodeObject([]byte(raw))
	if err != nil || obj == nil {
		LogDebug("Ignoring malformed user under %s: %v", key, err)
		return nil
	}
	return NormalizeUser(obj, "")
}
