package postgres

import (
	"time"

	"github.com/lib/pq"
	"github.com/rbaliyan/webmail/store"
)

// userRow is the sqlx row mapping for users.
type userRow struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// mailboxRow is the sqlx row mapping for mailboxes.
type mailboxRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// messageRow is the sqlx row mapping for messages.
type messageRow struct {
	ID        string         `db:"id"`
	MailboxID string         `db:"mailbox_id"`
	From      string         `db:"from_addr"`
	To        pq.StringArray `db:"to_addrs"`
	CC        pq.StringArray `db:"cc_addrs"`
	BCC       pq.StringArray `db:"bcc_addrs"`
	Subject   string         `db:"subject"`
	Body      string         `db:"body"`
	IsRead    bool           `db:"is_read"`
	ReadAt    *time.Time     `db:"read_at"`
	Timestamp time.Time      `db:"timestamp"`
}

// user implements store.User.
type user struct {
	id        string
	email     string
	name      string
	createdAt time.Time
}

func (u *user) GetID() string           { return u.id }
func (u *user) GetEmail() string        { return u.email }
func (u *user) GetName() string         { return u.name }
func (u *user) GetCreatedAt() time.Time { return u.createdAt }

// mailbox implements store.Mailbox.
type mailbox struct {
	id        string
	userID    string
	createdAt time.Time
}

func (m *mailbox) GetID() string           { return m.id }
func (m *mailbox) GetUserID() string       { return m.userID }
func (m *mailbox) GetCreatedAt() time.Time { return m.createdAt }

// message implements store.Message.
type message struct {
	id        string
	mailboxID string
	from      string
	to        []string
	cc        []string
	bcc       []string
	subject   string
	body      string
	isRead    bool
	readAt    *time.Time
	timestamp time.Time
}

func (m *message) GetID() string           { return m.id }
func (m *message) GetMailboxID() string    { return m.mailboxID }
func (m *message) GetFrom() string         { return m.from }
func (m *message) GetTo() []string         { return m.to }
func (m *message) GetCC() []string         { return m.cc }
func (m *message) GetBCC() []string        { return m.bcc }
func (m *message) GetSubject() string      { return m.subject }
func (m *message) GetBody() string         { return m.body }
func (m *message) GetIsRead() bool         { return m.isRead }
func (m *message) GetReadAt() *time.Time   { return m.readAt }
func (m *message) GetTimestamp() time.Time { return m.timestamp }

// Conversion functions

func rowToUser(r *userRow) *user {
	return &user{
		id:        r.ID,
		email:     r.Email,
		name:      r.Name,
		createdAt: r.CreatedAt,
	}
}

func rowToMailbox(r *mailboxRow) *mailbox {
	return &mailbox{
		id:        r.ID,
		userID:    r.UserID,
		createdAt: r.CreatedAt,
	}
}

func rowToMessage(r *messageRow) *message {
	return &message{
		id:        r.ID,
		mailboxID: r.MailboxID,
		from:      r.From,
		to:        r.To,
		cc:        r.CC,
		bcc:       r.BCC,
		subject:   r.Subject,
		body:      r.Body,
		isRead:    r.IsRead,
		readAt:    r.ReadAt,
		timestamp: r.Timestamp,
	}
}

// Compile-time checks
var _ store.User = (*user)(nil)
var _ store.Mailbox = (*mailbox)(nil)
var _ store.Message = (*message)(nil)
