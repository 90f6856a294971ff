package memory

import (
	"time"

	"github.com/rbaliyan/webmail/store"
)

// user is the in-memory user record.
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

func (u *user) clone() *user {
	c := *u
	return &c
}

// mailbox is the in-memory mailbox record.
type mailbox struct {
	id        string
	userID    string
	createdAt time.Time
}

func (m *mailbox) GetID() string           { return m.id }
func (m *mailbox) GetUserID() string       { return m.userID }
func (m *mailbox) GetCreatedAt() time.Time { return m.createdAt }

func (m *mailbox) clone() *mailbox {
	c := *m
	return &c
}

// message is the in-memory message record. Mutations go through the store's
// copy-on-write path; readers always receive clones.
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

func (m *message) GetID() string        { return m.id }
func (m *message) GetMailboxID() string { return m.mailboxID }
func (m *message) GetFrom() string      { return m.from }
func (m *message) GetTo() []string      { return m.to }
func (m *message) GetCC() []string      { return m.cc }
func (m *message) GetBCC() []string     { return m.bcc }
func (m *message) GetSubject() string   { return m.subject }
func (m *message) GetBody() string      { return m.body }
func (m *message) GetIsRead() bool      { return m.isRead }
func (m *message) GetReadAt() *time.Time {
	if m.readAt == nil {
		return nil
	}
	t := *m.readAt
	return &t
}
func (m *message) GetTimestamp() time.Time { return m.timestamp }

func (m *message) clone() *message {
	c := *m
	if m.to != nil {
		c.to = make([]string, len(m.to))
		copy(c.to, m.to)
	}
	if m.cc != nil {
		c.cc = make([]string, len(m.cc))
		copy(c.cc, m.cc)
	}
	if m.bcc != nil {
		c.bcc = make([]string, len(m.bcc))
		copy(c.bcc, m.bcc)
	}
	if m.readAt != nil {
		t := *m.readAt
		c.readAt = &t
	}
	return &c
}

var _ store.Message = (*message)(nil)
var _ store.Mailbox = (*mailbox)(nil)
var _ store.User = (*user)(nil)
