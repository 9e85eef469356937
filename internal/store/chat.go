package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateChat returns the chat between two users, creating it if needed.
// created reports whether a new row was inserted.
func (db *DB) CreateChat(userA, userB int64) (id int64, created bool, err error) {
	if userA == userB {
		return 0, false, errors.New("cannot chat with yourself")
	}
	u1, u2 := min(userA, userB), max(userA, userB)

	res, err := db.Exec(`
		INSERT INTO chats (user1_id, user2_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user1_id, user2_id) DO NOTHING`,
		u1, u2, time.Now().UnixMilli())
	if err != nil {
		return 0, false, fmt.Errorf("insert chat: %w", err)
	}
	n, _ := res.RowsAffected()

	err = db.QueryRow(`SELECT id FROM chats WHERE user1_id = ? AND user2_id = ?`, u1, u2).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("select chat: %w", err)
	}
	return id, n > 0, nil
}

// IsMember reports whether userID takes part in chatID.
func (db *DB) IsMember(chatID, userID int64) (bool, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM chats
		WHERE id = ? AND (user1_id = ? OR user2_id = ?)`,
		chatID, userID, userID).Scan(&n)
	return n > 0, err
}

// ListChats returns the conversations of userID, most recent message first;
// chats without messages come last, newest first.
func (db *DB) ListChats(userID int64) ([]ChatSummary, error) {
	rows, err := db.Query(`
		SELECT c.id, u.id, u.username, COALESCE(u.avatar_url, ''), u.status,
			lm.text, lm.created_at,
			(SELECT COUNT(*) FROM messages m
			 WHERE m.chat_id = c.id AND m.sender_id != ? AND m.is_read = 0) AS unread
		FROM chats c
		JOIN users u ON u.id = CASE WHEN c.user1_id = ? THEN c.user2_id ELSE c.user1_id END
		LEFT JOIN messages lm ON lm.id = (
			SELECT id FROM messages WHERE chat_id = c.id ORDER BY created_at DESC, id DESC LIMIT 1)
		WHERE c.user1_id = ? OR c.user2_id = ?
		ORDER BY lm.created_at IS NULL, lm.created_at DESC, c.created_at DESC, c.id DESC`,
		userID, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []ChatSummary
	for rows.Next() {
		var (
			c        ChatSummary
			lastText sql.NullString
			lastAt   sql.NullInt64
		)
		if err := rows.Scan(&c.ChatID, &c.OtherUserID, &c.OtherUsername, &c.OtherAvatar, &c.OtherStatus,
			&lastText, &lastAt, &c.UnreadCount); err != nil {
			return nil, err
		}
		c.LastMessage = lastText.String
		c.LastMessageAt = lastAt.Int64
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// DeleteChat removes a chat and all of its messages.
func (db *DB) DeleteChat(chatID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM chats WHERE id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
