package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillchat/quill/internal/models"
)

// Message repository errors.
var ErrMessageNotFound = errors.New("message not found")

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

const messageColumns = `id, realm_id, recipient_id, sender_id, subject, content, is_channel_message, last_edit_time, edit_history, date_sent`

// MessageRepository handles reads and id-scoped updates of messages.
// Message rows are created by the send subsystem, never here.
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Get retrieves a message by id.
func (r *MessageRepository) Get(ctx context.Context, id int64) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages WHERE id = ?
	`, id)

	return scanMessage(row)
}

// FetchByIDs retrieves messages by id, ordered by id ascending. Missing
// ids are skipped, not errors.
func (r *MessageRepository) FetchByIDs(ctx context.Context, ids []int64) ([]*models.Message, error) {
	return fetchMessagesByIDs(ctx, r.db, ids)
}

// FetchByIDsTx is FetchByIDs within an existing transaction.
func (r *MessageRepository) FetchByIDsTx(ctx context.Context, tx *sql.Tx, ids []int64) ([]*models.Message, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}
	return fetchMessagesByIDs(ctx, tx, ids)
}

func fetchMessagesByIDs(ctx context.Context, q querier, ids []int64) ([]*models.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT `+messageColumns+`
		FROM messages
		WHERE id IN (%s)
		ORDER BY id
	`, strings.Join(placeholders, ","))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages by ids: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		message, err := scanMessageFromRows(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// UpdateEditHistory records one edit on the in-memory message: it sets
// the last edit time and prepends the event to the decoded history.
// The stored history is newest-first and only ever grows.
func UpdateEditHistory(message *models.Message, lastEditTime time.Time, event models.EditHistoryEvent) error {
	var history []models.EditHistoryEvent
	if message.EditHistory != nil {
		if err := json.Unmarshal([]byte(*message.EditHistory), &history); err != nil {
			return fmt.Errorf("failed to decode edit history: %w", err)
		}
	}

	history = append([]models.EditHistoryEvent{event}, history...)

	encoded, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode edit history: %w", err)
	}

	s := string(encoded)
	message.EditHistory = &s
	t := lastEditTime.UTC()
	message.LastEditTime = &t
	return nil
}

// SaveForEdit persists the editable columns of a single message:
// subject, content, conversation, last edit time and edit history.
// Callers run it inside the same transaction as the bulk topic move.
func (r *MessageRepository) SaveForEdit(ctx context.Context, ex execer, message *models.Message) error {
	if ex == nil {
		ex = r.db
	}

	var lastEditTime *string
	if message.LastEditTime != nil {
		s := message.LastEditTime.UTC().Format(time.RFC3339)
		lastEditTime = &s
	}

	result, err := ex.ExecContext(ctx, `
		UPDATE messages
		SET subject = ?, content = ?, recipient_id = ?, last_edit_time = ?, edit_history = ?
		WHERE id = ?
	`,
		message.Subject,
		message.Content,
		message.RecipientID,
		lastEditTime,
		message.EditHistory,
		message.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save message for edit: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected count: %w", err)
	}
	if affected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func scanMessage(row *sql.Row) (*models.Message, error) {
	var message models.Message
	var isChannelMessage int
	var lastEditTime sql.NullString
	var editHistory sql.NullString
	var dateSent string

	err := row.Scan(
		&message.ID,
		&message.RealmID,
		&message.RecipientID,
		&message.SenderID,
		&message.Subject,
		&message.Content,
		&isChannelMessage,
		&lastEditTime,
		&editHistory,
		&dateSent,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	if err := populateMessageFields(&message, isChannelMessage, lastEditTime, editHistory, dateSent); err != nil {
		return nil, err
	}

	return &message, nil
}

func scanMessageFromRows(rows *sql.Rows) (*models.Message, error) {
	var message models.Message
	var isChannelMessage int
	var lastEditTime sql.NullString
	var editHistory sql.NullString
	var dateSent string

	if err := rows.Scan(
		&message.ID,
		&message.RealmID,
		&message.RecipientID,
		&message.SenderID,
		&message.Subject,
		&message.Content,
		&isChannelMessage,
		&lastEditTime,
		&editHistory,
		&dateSent,
	); err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	if err := populateMessageFields(&message, isChannelMessage, lastEditTime, editHistory, dateSent); err != nil {
		return nil, err
	}

	return &message, nil
}

func populateMessageFields(
	message *models.Message,
	isChannelMessage int,
	lastEditTime sql.NullString,
	editHistory sql.NullString,
	dateSent string,
) error {
	message.IsChannelMessage = isChannelMessage != 0

	if lastEditTime.Valid && lastEditTime.String != "" {
		parsed, err := time.Parse(time.RFC3339, lastEditTime.String)
		if err != nil {
			return fmt.Errorf("failed to parse last_edit_time: %w", err)
		}
		message.LastEditTime = &parsed
	}

	if editHistory.Valid && editHistory.String != "" {
		s := editHistory.String
		message.EditHistory = &s
	}

	parsed, err := time.Parse(time.RFC3339, dateSent)
	if err != nil {
		return fmt.Errorf("failed to parse date_sent: %w", err)
	}
	message.DateSent = parsed

	return nil
}
