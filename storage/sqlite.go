package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"appkeyid/core"

	_ "modernc.org/sqlite"
)

//go:embed schema/sqlite/schema.sql
var sqliteSchema string

// SQLiteStore persists the session across process restarts. The session is a
// singleton row; tokens are encrypted at rest when a crypto service is
// supplied.
type SQLiteStore struct {
	db     *sql.DB
	crypto *core.CryptoService
}

// NewSQLiteStore opens (and if needed initializes) the session database at
// dbPath. crypto may be nil, in which case tokens are stored in the clear.
func NewSQLiteStore(dbPath string, crypto *core.CryptoService) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, crypto: crypto}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(sqliteSchema)
	return err
}

func (s *SQLiteStore) Current(ctx context.Context) (*core.Session, error) {
	query := `
		SELECT user_json, access_token, jwt, id_token
		FROM session
		WHERE id = 1
	`

	var userJSON, accessToken, jwtToken, idToken string
	err := s.db.QueryRowContext(ctx, query).Scan(&userJSON, &accessToken, &jwtToken, &idToken)
	if err == sql.ErrNoRows {
		return &core.Session{}, nil
	}
	if err != nil {
		return nil, err
	}

	session := &core.Session{}
	if userJSON != "" {
		var user core.User
		if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
			return nil, fmt.Errorf("failed to decode stored user: %w", err)
		}
		session.User = &user
	}

	if session.AccessToken, err = s.reveal(accessToken); err != nil {
		return nil, err
	}
	if session.JWT, err = s.reveal(jwtToken); err != nil {
		return nil, err
	}
	if session.IDToken, err = s.reveal(idToken); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *SQLiteStore) Replace(ctx context.Context, session *core.Session) error {
	if !session.Valid() {
		return core.ErrInvalidSession
	}

	userJSON := ""
	if session.User != nil {
		encoded, err := json.Marshal(session.User)
		if err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}
		userJSON = string(encoded)
	}

	accessToken, err := s.conceal(session.AccessToken)
	if err != nil {
		return err
	}
	jwtToken, err := s.conceal(session.JWT)
	if err != nil {
		return err
	}
	idToken, err := s.conceal(session.IDToken)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO session (id, user_json, access_token, jwt, id_token, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_json = excluded.user_json,
			access_token = excluded.access_token,
			jwt = excluded.jwt,
			id_token = excluded.id_token,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, userJSON, accessToken, jwtToken, idToken, time.Now().Unix())
	return err
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`)
	return err
}

func (s *SQLiteStore) conceal(token string) (string, error) {
	if s.crypto == nil {
		return token, nil
	}
	encrypted, err := s.crypto.EncryptToken(token)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt token: %w", err)
	}
	return encrypted, nil
}

func (s *SQLiteStore) reveal(stored string) (string, error) {
	if s.crypto == nil {
		return stored, nil
	}
	token, err := s.crypto.DecryptToken(stored)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return token, nil
}
