package mongo

import (
	"time"

	"github.com/rbaliyan/webmail/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// userDoc is the MongoDB document for users. The authentication layer owns
// this collection; only the fields this store reads are mapped.
type userDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Name      string        `bson:"name"`
	CreatedAt time.Time     `bson:"created_at"`
}

// mailboxDoc is the MongoDB document for mailboxes.
type mailboxDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    string        `bson:"user_id"`
	CreatedAt time.Time     `bson:"created_at"`
}

// messageDoc is the MongoDB document for messages.
type messageDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	MailboxID string        `bson:"mailbox_id"`
	From      string        `bson:"from"`
	To        []string      `bson:"to"`
	CC        []string      `bson:"cc,omitempty"`
	BCC       []string      `bson:"bcc,omitempty"`
	Subject   string        `bson:"subject"`
	Body      string        `bson:"body"`
	IsRead    bool          `bson:"is_read"`
	ReadAt    *time.Time    `bson:"read_at,omitempty"`
	Timestamp time.Time     `bson:"timestamp"`
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

func docToUser(doc *userDoc) *user {
	return &user{
		id:        doc.ID.Hex(),
		email:     doc.Email,
		name:      doc.Name,
		createdAt: doc.CreatedAt,
	}
}

func docToMailbox(doc *mailboxDoc) *mailbox {
	return &mailbox{
		id:        doc.ID.Hex(),
		userID:    doc.UserID,
		createdAt: doc.CreatedAt,
	}
}

func docToMessage(doc *messageDoc) *message {
	return &message{
		id:        doc.ID.Hex(),
		mailboxID: doc.MailboxID,
		from:      doc.From,
		to:        doc.To,
		cc:        doc.CC,
		bcc:       doc.BCC,
		subject:   doc.Subject,
		body:      doc.Body,
		isRead:    doc.IsRead,
		readAt:    doc.ReadAt,
		timestamp: doc.Timestamp,
	}
}

func dataToDoc(data store.MessageData, now time.Time) *messageDoc {
	doc := &messageDoc{
		MailboxID: data.MailboxID,
		From:      data.From,
		To:        data.To,
		CC:        data.CC,
		BCC:       data.BCC,
		Subject:   data.Subject,
		Body:      data.Body,
		IsRead:    data.IsRead,
		Timestamp: now,
	}
	if data.IsRead {
		doc.ReadAt = &now
	}
	return doc
}

// Compile-time checks
var _ store.User = (*user)(nil)
var _ store.Mailbox = (*mailbox)(nil)
var _ store.Message = (*message)(nil)
