package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// CreateUser registers a new account.
func (db *DB) CreateUser(username, passwordHash string) (*User, error) {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO users (username, password_hash, status, last_seen, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		username, passwordHash, StatusOnline, now, now)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Status:       StatusOnline,
		LastSeen:     now,
		CreatedAt:    now,
	}, nil
}

// UserByUsername looks a user up case-insensitively.
func (db *DB) UserByUsername(username string) (*User, error) {
	return db.scanUser(db.QueryRow(userSelect+` WHERE username = ?`, username))
}

// UserByID looks a user up by id.
func (db *DB) UserByID(id int64) (*User, error) {
	return db.scanUser(db.QueryRow(userSelect+` WHERE id = ?`, id))
}

const userSelect = `
	SELECT id, username, password_hash, COALESCE(avatar_url, ''), status, COALESCE(last_seen, 0), created_at
	FROM users`

func (db *DB) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.AvatarURL, &u.Status, &u.LastSeen, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetStatus records a user's presence and touches last_seen.
func (db *DB) SetStatus(id int64, status string) error {
	_, err := db.Exec(`UPDATE users SET status = ?, last_seen = ? WHERE id = ?`,
		status, time.Now().UnixMilli(), id)
	return err
}

// SearchUsers returns users whose username contains query, case-insensitively,
// ordered by username. excludeID (when non-zero) is left out.
func (db *DB) SearchUsers(query string, excludeID int64, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(query) + "%"
	rows, err := db.Query(`
		SELECT id, username, '', COALESCE(avatar_url, ''), status, COALESCE(last_seen, 0), created_at
		FROM users
		WHERE username LIKE ? ESCAPE '\' AND id != ?
		ORDER BY username
		LIMIT ?`, pattern, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.AvatarURL, &u.Status, &u.LastSeen, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
