package store

import (
	"time"
)

// User is a read-only view of a user record. Users are owned by the
// authentication collaborator; this package only looks them up.
type User interface {
	GetID() string
	GetEmail() string
	GetName() string
	GetCreatedAt() time.Time
}

// Mailbox is a per-user partition owning a subset of message records.
// Created lazily on first access, never deleted, never mutated.
type Mailbox interface {
	GetID() string
	GetUserID() string
	GetCreatedAt() time.Time
}

// Message is a read-only view of a stored message record.
//
// A single logical send produces one record per recipient mailbox plus one
// record in the sender's mailbox. Each record is independently owned and has
// independent read state; "the email" never exists as a single shared row.
// Messages cannot be directly modified - use SetRead and DeleteMessage.
type Message interface {
	GetID() string
	GetMailboxID() string
	GetFrom() string
	GetTo() []string
	GetCC() []string
	GetBCC() []string
	GetSubject() string
	GetBody() string
	GetIsRead() bool
	GetReadAt() *time.Time
	GetTimestamp() time.Time
}

// MessageData contains data for creating a new message record.
// The store assigns ID and Timestamp on insert.
type MessageData struct {
	MailboxID string
	From      string
	To        []string
	CC        []string
	BCC       []string
	Subject   string
	Body      string
	IsRead    bool
}

// MessagePage represents one page of a message listing.
type MessagePage struct {
	Messages []Message
	Total    int64
	HasMore  bool
}

// UserData contains data for seeding a user record. Only the memory backend
// creates users; production backends read the authentication layer's tables.
type UserData struct {
	ID    string
	Email string
	Name  string
}
