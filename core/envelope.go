package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// sessionEnvelope carries the side-channel token fields the backend embeds
// alongside the typed identity payload. They are not part of the documented
// user shape, so the typed decode cannot see them; they are recovered with a
// second permissive parse of the same bytes.
type sessionEnvelope struct {
	AccessToken string
	JWT         string
	IDToken     string
	SignupToken string
}

func decodeEnvelope(payload []byte) sessionEnvelope {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return sessionEnvelope{}
	}
	str := func(key string) string {
		value, _ := raw[key].(string)
		return value
	}
	return sessionEnvelope{
		AccessToken: str("access-token"),
		JWT:         str("jwt"),
		IDToken:     str("id-token"),
		SignupToken: str("signup-token"),
	}
}

// decodeUser performs the typed identity decode plus the envelope recovery.
func decodeUser(payload []byte) (*User, sessionEnvelope, error) {
	var user User
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, sessionEnvelope{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if user.UserID == "" {
		return nil, sessionEnvelope{}, fmt.Errorf("%w: missing userId", ErrDecode)
	}
	return &user, decodeEnvelope(payload), nil
}

// completeSession replaces the session from a ceremony-completing payload.
// The whole trio of tokens is swapped together with the user; when the
// payload carries no fresh tokens the established ones are retained so the
// invariant holds across calls like updatePasskey that return only identity.
func (c *Client) completeSession(ctx context.Context, payload []byte) (*User, error) {
	user, envelope, err := decodeUser(payload)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	session := &Session{
		User:        user,
		AccessToken: envelope.AccessToken,
		JWT:         envelope.JWT,
		IDToken:     envelope.IDToken,
	}
	if session.AccessToken == "" {
		current, err := c.store.Current(ctx)
		if err == nil && current.Authenticated() {
			session.AccessToken = current.AccessToken
			if session.JWT == "" {
				session.JWT = current.JWT
			}
			if session.IDToken == "" {
				session.IDToken = current.IDToken
			}
		}
	}
	if !session.Valid() {
		return nil, ErrInvalidSession
	}
	if err := c.store.Replace(ctx, session); err != nil {
		return nil, err
	}
	return user, nil
}

// clearSession resets the session to its empty state.
func (c *Client) clearSession(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.store.Clear(ctx)
}
