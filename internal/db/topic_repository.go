package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillchat/quill/internal/events"
	"github.com/quillchat/quill/internal/models"
	"github.com/quillchat/quill/internal/topic"
)

// AccessFilter restricts a candidate message set to the messages the
// acting user may access in the source conversation. It is an external
// collaborator: this package never makes access decisions itself.
type AccessFilter interface {
	FilterAccessible(ctx context.Context, tx *sql.Tx, actingUserID int64, messageIDs []int64, origRecipientID int64) ([]int64, error)
}

// TopicRepository handles topic-scoped queries and the multi-row
// topic-move update.
type TopicRepository struct {
	db        *DB
	messages  *MessageRepository
	access    AccessFilter
	publisher *events.Publisher
}

// TopicRepositoryOption configures a TopicRepository.
type TopicRepositoryOption func(*TopicRepository)

// WithPublisher has the repository publish a topic-edit event after
// each successful MoveTopic commit. Subscribers use the events to
// invalidate caches keyed by the moved message ids.
func WithPublisher(p *events.Publisher) TopicRepositoryOption {
	return func(r *TopicRepository) {
		r.publisher = p
	}
}

// NewTopicRepository creates a new TopicRepository. access may be nil
// for callers that never move messages between conversations.
func NewTopicRepository(db *DB, access AccessFilter, opts ...TopicRepositoryOption) *TopicRepository {
	r := &TopicRepository{
		db:       db,
		messages: NewMessageRepository(db),
		access:   access,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MessagesForTopic retrieves all channel messages in a topic. The topic
// name matches case-insensitively; no ordering is guaranteed beyond the
// store's natural order.
func (r *TopicRepository) MessagesForTopic(ctx context.Context, realmID, recipientID int64, topicName string) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE realm_id = ?
			AND recipient_id = ?
			AND casefold(subject) = casefold(?)
			AND is_channel_message = 1
	`, realmID, recipientID, topicName)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for topic: %w", err)
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
		return nil, fmt.Errorf("error iterating messages for topic: %w", err)
	}

	return messages, nil
}

// LatestMessageIDForUserInTopic returns the highest message id visible
// in a topic, or nil when there is none.
//
// Callers must have verified channel content access first;
// hasContentAccess exists to guard against skipping that check, and a
// false value is a caller bug, not a runtime condition.
//
// When the channel's history is public to subscribers the lookup spans
// the whole topic. Otherwise it is limited to messages the given user
// has a delivery record for; with no user it returns nil.
func (r *TopicRepository) LatestMessageIDForUserInTopic(
	ctx context.Context,
	realmID int64,
	userID *int64,
	recipientID int64,
	topicName string,
	historyPublicToSubscribers bool,
	hasContentAccess bool,
) (*int64, error) {
	if !hasContentAccess {
		panic("LatestMessageIDForUserInTopic called without channel content access check")
	}

	if historyPublicToSubscribers {
		var maxID sql.NullInt64
		err := r.db.QueryRowContext(ctx, `
			SELECT MAX(id)
			FROM messages
			WHERE realm_id = ?
				AND recipient_id = ?
				AND casefold(subject) = casefold(?)
				AND is_channel_message = 1
		`, realmID, recipientID, topicName).Scan(&maxID)
		if err != nil {
			return nil, fmt.Errorf("failed to query latest message id: %w", err)
		}
		if !maxID.Valid {
			return nil, nil
		}
		return &maxID.Int64, nil
	}

	if userID != nil {
		var maxID sql.NullInt64
		err := r.db.QueryRowContext(ctx, `
			SELECT MAX(um.message_id)
			FROM user_messages um
			JOIN messages m ON m.id = um.message_id
			WHERE um.user_id = ?
				AND m.recipient_id = ?
				AND casefold(m.subject) = casefold(?)
				AND m.is_channel_message = 1
		`, *userID, recipientID, topicName).Scan(&maxID)
		if err != nil {
			return nil, fmt.Errorf("failed to query latest message id for user: %w", err)
		}
		if !maxID.Valid {
			return nil, nil
		}
		return &maxID.Int64, nil
	}

	return nil, nil
}

// UserMessageExistsForTopic reports whether the user has a delivery
// record for at least one channel message in the topic.
func (r *TopicRepository) UserMessageExistsForTopic(ctx context.Context, userID, recipientID int64, topicName string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM user_messages um
			JOIN messages m ON m.id = um.message_id
			WHERE um.user_id = ?
				AND m.recipient_id = ?
				AND casefold(m.subject) = casefold(?)
				AND m.is_channel_message = 1
		)
	`, userID, recipientID, topicName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query user message existence: %w", err)
	}
	return exists != 0, nil
}

// ParticipantsForTopic returns the users who either sent or reacted to
// the messages in the topic. Cost is linear in the topic's message
// count; callers should bound usage for hot topics.
func (r *TopicRepository) ParticipantsForTopic(ctx context.Context, realmID, recipientID int64, topicName string) (map[int64]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.sender_id
		FROM messages m
		WHERE m.realm_id = ?
			AND m.recipient_id = ?
			AND casefold(m.subject) = casefold(?)
			AND m.is_channel_message = 1
		UNION
		SELECT r.user_id
		FROM reactions r
		JOIN messages m ON m.id = r.message_id
		WHERE m.realm_id = ?
			AND m.recipient_id = ?
			AND casefold(m.subject) = casefold(?)
			AND m.is_channel_message = 1
	`, realmID, recipientID, topicName, realmID, recipientID, topicName)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic participants: %w", err)
	}
	defer rows.Close()

	participants := make(map[int64]struct{})
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants[userID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}

	return participants, nil
}

// TopicHistoryForPublicStream aggregates the topic history of a
// conversation across all channel messages.
//
// The GROUP BY is case-sensitive on purpose: the aggregation step picks
// the most recently used casing per canonical name, which requires the
// literal casings to survive this query.
func (r *TopicRepository) TopicHistoryForPublicStream(ctx context.Context, realmID, recipientID int64, allowEmptyTopicName bool) ([]models.TopicHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT subject, MAX(id)
		FROM messages
		WHERE realm_id = ?
			AND recipient_id = ?
			AND is_channel_message = 1
		GROUP BY subject
		ORDER BY MAX(id) DESC
	`, realmID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic history: %w", err)
	}
	defer rows.Close()

	historyRows, err := scanHistoryRows(rows)
	if err != nil {
		return nil, err
	}

	return topic.GenerateHistory(historyRows, allowEmptyTopicName), nil
}

// TopicHistoryForStream aggregates the topic history visible to a user.
// With public history it spans the whole conversation; otherwise it is
// restricted to topics the user has received messages in.
func (r *TopicRepository) TopicHistoryForStream(ctx context.Context, userID, realmID, recipientID int64, publicHistory, allowEmptyTopicName bool) ([]models.TopicHistoryEntry, error) {
	if publicHistory {
		return r.TopicHistoryForPublicStream(ctx, realmID, recipientID, allowEmptyTopicName)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT m.subject, MAX(m.id)
		FROM messages m
		JOIN user_messages um ON um.message_id = m.id
		WHERE um.user_id = ?
			AND m.realm_id = ?
			AND m.recipient_id = ?
			AND m.is_channel_message = 1
		GROUP BY m.subject
		ORDER BY MAX(m.id) DESC
	`, userID, realmID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user topic history: %w", err)
	}
	defer rows.Close()

	historyRows, err := scanHistoryRows(rows)
	if err != nil {
		return nil, err
	}

	return topic.GenerateHistory(historyRows, allowEmptyTopicName), nil
}

func scanHistoryRows(rows *sql.Rows) ([]topic.HistoryRow, error) {
	var historyRows []topic.HistoryRow
	for rows.Next() {
		var row topic.HistoryRow
		if err := rows.Scan(&row.Name, &row.MaxID); err != nil {
			return nil, fmt.Errorf("failed to scan topic history row: %w", err)
		}
		historyRows = append(historyRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic history rows: %w", err)
	}
	return historyRows, nil
}

// TopicMove is the two-phase result of preparing a topic edit: the
// candidate ids captured before the update, and a deferred Propagate
// that performs the update and re-fetches the affected rows.
type TopicMove struct {
	// CandidateIDs are the bulk-update targets, captured before the
	// update because its own predicate stops matching once the topic
	// changes.
	CandidateIDs []int64

	// MessageIDs is the edited message id plus every candidate id; the
	// full set a cache rebuild must cover.
	MessageIDs []int64

	// Propagate issues the bulk update and returns the affected rows,
	// freshly loaded by id.
	Propagate func(ctx context.Context) ([]*models.Message, error)
}

// UpdateMessagesForTopicEdit prepares the multi-row update for a topic
// rename and/or conversation move. It runs entirely inside the caller's
// transaction: candidate selection and access filtering happen now, the
// update itself when the returned Propagate is invoked.
//
// The edited message is never part of the bulk set; the caller updates
// it separately via SaveForEdit within the same transaction.
func (r *TopicRepository) UpdateMessagesForTopicEdit(
	ctx context.Context,
	tx *sql.Tx,
	actingUserID int64,
	edited *models.Message,
	req *models.TopicEditRequest,
	event models.EditHistoryEvent,
	lastEditTime time.Time,
) (*TopicMove, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid edit request: %w", err)
	}

	candidateIDs, err := r.selectCandidateIDs(ctx, tx, edited, req)
	if err != nil {
		return nil, err
	}

	if req.IsRecipientEdited && len(candidateIDs) > 0 {
		// Moving between conversations must not widen what the acting
		// user can read; drop candidates the user cannot access in the
		// original conversation. Topic-only renames skip this so the
		// topic stays together even across messages the user cannot
		// see.
		if r.access == nil {
			return nil, fmt.Errorf("access filter is required when moving conversations")
		}
		candidateIDs, err = r.access.FilterAccessible(ctx, tx, actingUserID, candidateIDs, req.OrigRecipientID)
		if err != nil {
			return nil, fmt.Errorf("failed to filter accessible messages: %w", err)
		}
	}

	// Capture the full id set before the update: once the subject
	// changes, the selection predicate no longer matches these rows.
	messageIDs := make([]int64, 0, len(candidateIDs)+1)
	messageIDs = append(messageIDs, edited.ID)
	messageIDs = append(messageIDs, candidateIDs...)

	eventArray, err := json.Marshal([]models.EditHistoryEvent{event})
	if err != nil {
		return nil, fmt.Errorf("failed to encode edit history event: %w", err)
	}

	move := &TopicMove{
		CandidateIDs: candidateIDs,
		MessageIDs:   messageIDs,
	}
	move.Propagate = func(ctx context.Context) ([]*models.Message, error) {
		if len(candidateIDs) > 0 {
			if err := r.applyTopicEdit(ctx, tx, candidateIDs, req, string(eventArray), lastEditTime); err != nil {
				return nil, err
			}
		}
		return r.messages.FetchByIDsTx(ctx, tx, messageIDs)
	}

	r.db.logger.Debug().
		Int64("recipient_id", req.OrigRecipientID).
		Str("propagate_mode", string(req.PropagateMode)).
		Int("candidates", len(candidateIDs)).
		Msg("prepared topic edit")

	return move, nil
}

// MoveTopic runs a complete topic edit as one atomic unit: it loads the
// edited message, records the edit on it, prepares and propagates the
// bulk update per the request's mode, and commits, retrying when the
// store is busy. It returns the prepared move and the refetched rows.
//
// When a publisher is configured, a topic-edit event goes out after the
// commit, never before, so subscribers only ever see durable state.
func (r *TopicRepository) MoveTopic(
	ctx context.Context,
	actingUserID int64,
	editedMessageID int64,
	req *models.TopicEditRequest,
	event models.EditHistoryEvent,
	lastEditTime time.Time,
) (*TopicMove, []*models.Message, error) {
	var move *TopicMove
	var moved []*models.Message

	err := r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		rows, err := r.messages.FetchByIDsTx(ctx, tx, []int64{editedMessageID})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrMessageNotFound
		}
		edited := rows[0]

		move, err = r.UpdateMessagesForTopicEdit(ctx, tx, actingUserID, edited, req, event, lastEditTime)
		if err != nil {
			return err
		}

		if err := UpdateEditHistory(edited, lastEditTime, event); err != nil {
			return err
		}
		if req.IsTopicEdited {
			edited.Subject = req.TargetTopicName
		}
		if req.IsRecipientEdited {
			edited.RecipientID = req.TargetRecipientID
		}
		if err := r.messages.SaveForEdit(ctx, tx, edited); err != nil {
			return err
		}

		moved, err = move.Propagate(ctx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	// moved always contains at least the edited row.
	r.publishTopicEdit(ctx, actingUserID, moved[0].RealmID, req, move.MessageIDs)

	return move, moved, nil
}

func (r *TopicRepository) publishTopicEdit(ctx context.Context, actingUserID, realmID int64, req *models.TopicEditRequest, messageIDs []int64) {
	if r.publisher == nil {
		return
	}

	payload, err := json.Marshal(models.TopicMovedPayload{
		RealmID:           realmID,
		ActingUserID:      actingUserID,
		OrigRecipientID:   req.OrigRecipientID,
		TargetRecipientID: req.TargetRecipientID,
		OrigTopic:         req.OrigTopicName,
		TargetTopic:       req.TargetTopicName,
		PropagateMode:     req.PropagateMode,
		MessageIDs:        messageIDs,
	})
	if err != nil {
		r.db.logger.Warn().Err(err).Msg("failed to encode topic edit payload")
		return
	}

	r.publisher.Publish(ctx, &models.Event{
		ID:         uuid.New().String(),
		Timestamp:  time.Now().UTC(),
		Type:       classifyTopicEdit(req),
		EntityType: models.EntityTypeRecipient,
		EntityID:   strconv.FormatInt(req.OrigRecipientID, 10),
		Payload:    payload,
	})
}

// classifyTopicEdit picks the event type for an edit request. Moves
// between conversations trump renames; a rename that only adds or
// removes the resolution prefix is a resolve or unresolve.
func classifyTopicEdit(req *models.TopicEditRequest) models.EventType {
	if req.IsRecipientEdited {
		return models.EventTypeTopicMoved
	}

	origResolved, origBare := topic.ResolutionAndBareName(req.OrigTopicName)
	targetResolved, targetBare := topic.ResolutionAndBareName(req.TargetTopicName)
	if topic.Fold(origBare) == topic.Fold(targetBare) {
		if !origResolved && targetResolved {
			return models.EventTypeTopicResolved
		}
		if origResolved && !targetResolved {
			return models.EventTypeTopicUnresolved
		}
	}
	return models.EventTypeTopicRenamed
}

func (r *TopicRepository) selectCandidateIDs(ctx context.Context, tx *sql.Tx, edited *models.Message, req *models.TopicEditRequest) ([]int64, error) {
	// change_one touches only the edited message, which the caller
	// updates directly; there are no bulk candidates.
	if req.PropagateMode == models.PropagateOne {
		return nil, nil
	}

	query := `
		SELECT id
		FROM messages
		WHERE realm_id = ?
			AND recipient_id = ?
			AND casefold(subject) = casefold(?)
			AND is_channel_message = 1
	`
	args := []any{edited.RealmID, req.OrigRecipientID, req.OrigTopicName}

	switch req.PropagateMode {
	case models.PropagateAll:
		query += ` AND id != ?`
		args = append(args, edited.ID)
	case models.PropagateLater:
		query += ` AND id > ?`
		args = append(args, edited.ID)
	}
	query += ` ORDER BY id`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select topic edit candidates: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate ids: %w", err)
	}

	return ids, nil
}

// applyTopicEdit issues the single bulk UPDATE over the captured ids.
//
// The edit_history column stores a JSON array as text, newest first.
// Prepending in SQL splices the serialized one-event array onto the
// stored one:
//
//	[new]  +  [old...]  =  substr('[new]', 1, len-1) || ',' || substr('[old...]', 2)
//
// with NULL and empty histories collapsing to the bare one-event array.
func (r *TopicRepository) applyTopicEdit(
	ctx context.Context,
	tx *sql.Tx,
	ids []int64,
	req *models.TopicEditRequest,
	eventArray string,
	lastEditTime time.Time,
) error {
	setClauses := []string{
		`last_edit_time = ?`,
		`edit_history = CASE
			WHEN edit_history IS NULL OR edit_history = '' OR edit_history = '[]'
				THEN ?
			ELSE substr(?, 1, length(?) - 1) || ',' || substr(edit_history, 2)
		END`,
	}
	args := []any{
		lastEditTime.UTC().Format(time.RFC3339),
		eventArray,
		eventArray,
		eventArray,
	}

	if req.IsRecipientEdited {
		setClauses = append(setClauses, `recipient_id = ?`)
		args = append(args, req.TargetRecipientID)
	}
	if req.IsTopicEdited {
		setClauses = append(setClauses, `subject = ?`)
		args = append(args, req.TargetTopicName)
	}

	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`UPDATE messages SET %s WHERE id IN (%s)`,
		strings.Join(setClauses, ", "),
		strings.Join(placeholders, ","),
	)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to apply topic edit: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected count: %w", err)
	}
	r.db.logger.Debug().Int64("affected", affected).Msg("applied topic edit")

	return nil
}
