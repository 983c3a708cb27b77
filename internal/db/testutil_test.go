package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/quillchat/quill/internal/config"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := config.DefaultConfig().Database
	cfg.Path = filepath.Join(t.TempDir(), "quill.db")
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return db
}

// testMessage is a fixture row. Message creation belongs to the send
// subsystem, so tests insert rows directly rather than through a
// repository.
type testMessage struct {
	realmID     int64
	recipientID int64
	senderID    int64
	subject     string
	content     string
	channel     bool
	editHistory *string
}

func insertMessage(t *testing.T, db *DB, m testMessage) int64 {
	t.Helper()

	channel := 0
	if m.channel {
		channel = 1
	}

	result, err := db.ExecContext(context.Background(), `
		INSERT INTO messages (realm_id, recipient_id, sender_id, subject, content, is_channel_message, edit_history, date_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.realmID, m.recipientID, m.senderID, m.subject, m.content, channel, m.editHistory,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("insert message failed: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id failed: %v", err)
	}
	return id
}

func insertUserMessage(t *testing.T, db *DB, userID, messageID int64) {
	t.Helper()

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO user_messages (user_id, message_id) VALUES (?, ?)
	`, userID, messageID)
	if err != nil {
		t.Fatalf("insert user message failed: %v", err)
	}
}

func insertReaction(t *testing.T, db *DB, messageID, userID int64, emoji string) {
	t.Helper()

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO reactions (message_id, user_id, emoji_name) VALUES (?, ?, ?)
	`, messageID, userID, emoji)
	if err != nil {
		t.Fatalf("insert reaction failed: %v", err)
	}
}
