package chat

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/smartcommutex-backend/internal/pgjson"
)

// Chat is a conversation between exactly two users.
type Chat struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Member is the public part of a participant's profile.
type Member struct {
	ID    string  `json:"id"`
	Name  *string `json:"name"`
	Image *string `json:"image"`
}

// Summary is a chat as listed for one of its participants: the other
// participants and the most recent message, if any.
type Summary struct {
	Chat
	Users       []Member
	LastMessage *Message
}

type Message struct {
	ID        uuid.UUID `db:"id"`
	ChatID    uuid.UUID `db:"chat_id"`
	SenderID  string    `db:"sender_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

type MessageWithSender struct {
	Message
	SenderName  sql.NullString `db:"sender_name"`
	SenderImage sql.NullString `db:"sender_image"`
}

type summaryRow struct {
	Chat
	Users         pgjson.List[Member] `db:"users"`
	LastID        uuid.NullUUID       `db:"last_id"`
	LastSenderID  sql.NullString      `db:"last_sender_id"`
	LastContent   sql.NullString      `db:"last_content"`
	LastCreatedAt sql.NullTime        `db:"last_created_at"`
}

func (r summaryRow) summary() Summary {
	s := Summary{Chat: r.Chat, Users: r.Users}
	if r.LastID.Valid {
		s.LastMessage = &Message{
			ID:        r.LastID.UUID,
			ChatID:    r.ID,
			SenderID:  r.LastSenderID.String,
			Content:   r.LastContent.String,
			CreatedAt: r.LastCreatedAt.Time,
		}
	}
	return s
}
