package store

import (
	"fmt"
	"time"
)

// AddMessage stores a message sent by senderID.
func (db *DB) AddMessage(chatID, senderID int64, text string) (*Message, error) {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO messages (chat_id, sender_id, text, is_read, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		chatID, senderID, text, now)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Message{ID: id, ChatID: chatID, SenderID: senderID, Text: text, CreatedAt: now}, nil
}

// ListMessages returns the history of a chat in chronological order.
func (db *DB) ListMessages(chatID int64) ([]Message, error) {
	rows, err := db.Query(`
		SELECT m.id, m.chat_id, m.sender_id, u.username, m.text, m.is_read, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.chat_id = ?
		ORDER BY m.created_at ASC, m.id ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.SenderUsername, &m.Text, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkRead marks every message of a chat not sent by readerID as read.
func (db *DB) MarkRead(chatID, readerID int64) (int64, error) {
	res, err := db.Exec(`
		UPDATE messages SET is_read = 1
		WHERE chat_id = ? AND sender_id != ? AND is_read = 0`,
		chatID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
