package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound        = errors.New("chat not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrMissingFields   = errors.New("missing required fields")
	ErrSelfChat        = errors.New("cannot start a chat with yourself")
	ErrNotParticipant  = errors.New("caller is not a participant of the chat")
	ErrUnauthenticated = errors.New("caller is not authenticated")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// FindOrCreate returns the chat between callerID and otherID, creating it
// when the two have never talked. created reports which happened.
func (r *Repository) FindOrCreate(ctx context.Context, callerID, otherID string) (c Chat, created bool, err error) {
	otherID = strings.TrimSpace(otherID)
	if callerID == "" {
		return Chat{}, false, ErrUnauthenticated
	}
	if otherID == "" {
		return Chat{}, false, ErrMissingFields
	}
	if otherID == callerID {
		return Chat{}, false, ErrSelfChat
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Chat{}, false, err
	}
	defer tx.Rollback()

	var known bool
	if err := tx.GetContext(ctx, &known, userExistsQuery, otherID); err != nil {
		return Chat{}, false, fmt.Errorf("look up user: %w", err)
	}
	if !known {
		return Chat{}, false, ErrUserNotFound
	}

	// Serialises concurrent first contacts between the same pair.
	if _, err := tx.ExecContext(ctx, pairLockQuery, pairKey(callerID, otherID)); err != nil {
		return Chat{}, false, fmt.Errorf("lock pair: %w", err)
	}

	err = tx.GetContext(ctx, &c, findChatQuery, callerID, otherID)
	if err == nil {
		return c, false, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Chat{}, false, fmt.Errorf("find chat: %w", err)
	}

	if err := tx.GetContext(ctx, &c, createChatQuery, uuid.New()); err != nil {
		return Chat{}, false, fmt.Errorf("create chat: %w", err)
	}
	for _, id := range []string{callerID, otherID} {
		if _, err := tx.ExecContext(ctx, addParticipantQuery, c.ID, id); err != nil {
			return Chat{}, false, fmt.Errorf("add participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Chat{}, false, err
	}
	return c, true, nil
}

const userExistsQuery = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

const pairLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "chat:" + a + "\x00" + b
}

const findChatQuery = `
SELECT c.id, c.created_at, c.updated_at
FROM chats c
JOIN chat_participants a ON a.chat_id = c.id AND a.user_id = $1
JOIN chat_participants b ON b.chat_id = c.id AND b.user_id = $2
ORDER BY c.created_at
LIMIT 1
`

const createChatQuery = `INSERT INTO chats (id, created_at, updated_at) VALUES ($1, now(), now()) RETURNING id, created_at, updated_at`

const addParticipantQuery = `INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2)`

// ListForUser returns the user's chats, most recently active first.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]Summary, error) {
	var rows []summaryRow
	if err := r.db.SelectContext(ctx, &rows, listForUserQuery, userID); err != nil {
		return nil, err
	}

	chats := make([]Summary, 0, len(rows))
	for _, row := range rows {
		chats = append(chats, row.summary())
	}
	return chats, nil
}

const listForUserQuery = `
SELECT c.id, c.created_at, c.updated_at,
       COALESCE((SELECT json_agg(json_build_object('id', u.id, 'name', u.name, 'image', u.image) ORDER BY u.id)
                 FROM chat_participants p JOIN users u ON u.id = p.user_id
                 WHERE p.chat_id = c.id AND p.user_id <> $1), '[]'::json) AS users,
       lm.id AS last_id, lm.sender_id AS last_sender_id, lm.content AS last_content, lm.created_at AS last_created_at
FROM chats c
JOIN chat_participants me ON me.chat_id = c.id AND me.user_id = $1
LEFT JOIN LATERAL (
    SELECT m.id, m.sender_id, m.content, m.created_at FROM messages m
    WHERE m.chat_id = c.id
    ORDER BY m.created_at DESC, m.id DESC
    LIMIT 1
) lm ON true
ORDER BY c.updated_at DESC, c.id
`

type membership struct {
	ChatExists  bool `db:"chat_exists"`
	Participant bool `db:"participant"`
}

func checkMembership(ctx context.Context, q sqlx.QueryerContext, chatID uuid.UUID, userID string) error {
	var m membership
	if err := sqlx.GetContext(ctx, q, &m, membershipQuery, chatID, userID); err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !m.ChatExists {
		return ErrNotFound
	}
	if !m.Participant {
		return ErrNotParticipant
	}
	return nil
}

const membershipQuery = `
SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1) AS chat_exists,
       EXISTS (SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2) AS participant
`

// Messages returns the chat's messages oldest first. Only participants may
// read them.
func (r *Repository) Messages(ctx context.Context, callerID, chatID string) ([]MessageWithSender, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, ErrMissingFields
	}
	id, err := uuid.Parse(strings.TrimSpace(chatID))
	if err != nil {
		return nil, ErrNotFound
	}

	if err := checkMembership(ctx, r.db, id, callerID); err != nil {
		return nil, err
	}

	messages := []MessageWithSender{}
	err = r.db.SelectContext(ctx, &messages, listMessagesQuery, id)
	return messages, err
}

const listMessagesQuery = `
SELECT m.id, m.chat_id, m.sender_id, m.content, m.created_at,
       u.name AS sender_name, u.image AS sender_image
FROM messages m
JOIN users u ON u.id = m.sender_id
WHERE m.chat_id = $1
ORDER BY m.created_at ASC, m.id
`

// PostMessage appends a message to the chat and marks the chat as updated,
// both or neither.
func (r *Repository) PostMessage(ctx context.Context, callerID, chatID, content string) (Message, error) {
	if callerID == "" {
		return Message{}, ErrUnauthenticated
	}
	if strings.TrimSpace(chatID) == "" || strings.TrimSpace(content) == "" {
		return Message{}, ErrMissingFields
	}
	id, err := uuid.Parse(strings.TrimSpace(chatID))
	if err != nil {
		return Message{}, ErrNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Message{}, err
	}
	defer tx.Rollback()

	if err := checkMembership(ctx, tx, id, callerID); err != nil {
		return Message{}, err
	}

	var m Message
	if err := tx.GetContext(ctx, &m, createMessageQuery, uuid.New(), id, callerID, content); err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, touchChatQuery, id); err != nil {
		return Message{}, fmt.Errorf("touch chat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Message{}, err
	}
	return m, nil
}

const createMessageQuery = `
INSERT INTO messages (id, chat_id, sender_id, content, created_at)
VALUES ($1, $2, $3, $4, clock_timestamp())
RETURNING id, chat_id, sender_id, content, created_at
`

const touchChatQuery = `UPDATE chats SET updated_at = now() WHERE id = $1`
