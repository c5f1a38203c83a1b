// Package userstore persists Telegram users with their roles, the web
// admin account, and the session-signing secret in a local SQLite
// database. Telegram users self-register as guests on /start; an admin
// promotes them through the web panel before they can drive the bot.
package userstore

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alarmbot/alarmbot/internal/logger"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// Roles assignable to Telegram users.
const (
	RoleGuest = "guest"
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// secretLength is the size of the generated session-signing secret.
const secretLength = 24

// TelegramUser is one registered chat user.
type TelegramUser struct {
	ID   int64
	Name string
	Role string
}

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, logger: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS telegram_users (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS web_users (
	id            INTEGER PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS app_config (
	id     INTEGER PRIMARY KEY,
	secret BLOB NOT NULL
);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Init seeds the first-run state: an admin web account with
// initPassword and a random session-signing secret. Both are no-ops on
// later runs.
func (s *Store) Init(initPassword string) error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM web_users`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count web users: %w", err)
	}
	if count == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(initPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
		if _, err := s.db.Exec(
			`INSERT INTO web_users (id, username, password_hash) VALUES (0, 'admin', ?)`, string(hash)); err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		s.logger.Info("first run, created admin web user")
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM app_config`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count app config: %w", err)
	}
	if count == 0 {
		secret := make([]byte, secretLength)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		if _, err := s.db.Exec(`INSERT INTO app_config (id, secret) VALUES (0, ?)`, secret); err != nil {
			return fmt.Errorf("failed to store session secret: %w", err)
		}
		s.logger.Info("first run, created session secret")
	}

	return nil
}

// HasUser reports whether the Telegram user is registered.
func (s *Store) HasUser(id int64) (bool, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM telegram_users WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query user: %w", err)
	}
	return count == 1, nil
}

// InsertUser registers a Telegram user with the guest role.
func (s *Store) InsertUser(id int64, name string) error {
	if _, err := s.db.Exec(
		`INSERT INTO telegram_users (id, name, role) VALUES (?, ?, ?)`, id, name, RoleGuest); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// HasAccess reports whether the Telegram user holds one of the given
// roles. Unknown users have no access.
func (s *Store) HasAccess(id int64, roles ...string) (bool, error) {
	var role string
	err := s.db.QueryRow(`SELECT role FROM telegram_users WHERE id = ?`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query role: %w", err)
	}

	for _, r := range roles {
		if role == r {
			return true, nil
		}
	}
	return false, nil
}

// ListUsers returns all registered Telegram users ordered by id.
func (s *Store) ListUsers() ([]TelegramUser, error) {
	rows, err := s.db.Query(`SELECT id, name, role FROM telegram_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []TelegramUser
	for rows.Next() {
		var u TelegramUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateRole changes a Telegram user's role.
func (s *Store) UpdateRole(id int64, role string) error {
	switch role {
	case RoleGuest, RoleUser, RoleAdmin:
	default:
		return fmt.Errorf("unknown role: %s", role)
	}

	res, err := s.db.Exec(`UPDATE telegram_users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no user with id %d", id)
	}
	return nil
}

// Authenticate checks web admin credentials.
func (s *Store) Authenticate(username, password string) (bool, error) {
	var hash string
	err := s.db.QueryRow(`SELECT password_hash FROM web_users WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query web user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

// Secret returns the session-signing secret created by Init.
func (s *Store) Secret() ([]byte, error) {
	var secret []byte
	if err := s.db.QueryRow(`SELECT secret FROM app_config WHERE id = 0`).Scan(&secret); err != nil {
		return nil, fmt.Errorf("failed to load session secret: %w", err)
	}
	return secret, nil
}
