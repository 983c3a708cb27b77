package db

import (
	"context"
	"fmt"
)

// Schema for the message store. Messages are owned by the send/edit
// subsystem; this layer reads them and performs id-scoped updates.
//
// subject is stored case-preserving; the expression index on
// casefold(subject) serves the case-insensitive topic lookups, while
// the plain subject index serves the case-sensitive history GROUP BY.
// casefold is the registered scalar function from this package, so the
// database file is only usable through it.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	realm_id           INTEGER NOT NULL,
	recipient_id       INTEGER NOT NULL,
	sender_id          INTEGER NOT NULL,
	subject            TEXT NOT NULL DEFAULT '',
	content            TEXT NOT NULL DEFAULT '',
	is_channel_message INTEGER NOT NULL DEFAULT 1,
	last_edit_time     TEXT,
	edit_history       TEXT,
	date_sent          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_realm_recipient_subject
	ON messages (realm_id, recipient_id, subject);

CREATE INDEX IF NOT EXISTS idx_messages_realm_recipient_folded_subject
	ON messages (realm_id, recipient_id, casefold(subject));

CREATE TABLE IF NOT EXISTS user_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL,
	message_id INTEGER NOT NULL REFERENCES messages(id),
	UNIQUE (user_id, message_id)
);

CREATE INDEX IF NOT EXISTS idx_user_messages_message
	ON user_messages (message_id);

CREATE TABLE IF NOT EXISTS reactions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL REFERENCES messages(id),
	user_id    INTEGER NOT NULL,
	emoji_name TEXT NOT NULL,
	UNIQUE (message_id, user_id, emoji_name)
);

CREATE INDEX IF NOT EXISTS idx_reactions_message
	ON reactions (message_id);

CREATE TABLE IF NOT EXISTS topic_edit_events (
	id           TEXT PRIMARY KEY,
	timestamp    TEXT NOT NULL,
	type         TEXT NOT NULL,
	entity_type  TEXT NOT NULL,
	entity_id    TEXT NOT NULL,
	payload_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_topic_edit_events_entity
	ON topic_edit_events (entity_type, entity_id, timestamp);
`

func (db *DB) initSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
