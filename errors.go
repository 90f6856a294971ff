package webmail

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rbaliyan/webmail/store"
)

// Sentinel errors for the webmail package.
// Use errors.Is() to check for these errors.
//
// These errors wrap corresponding store-level errors where applicable,
// so errors.Is(err, webmail.ErrNotFound) matches both webmail-level
// and store-level "not found" errors.
var (
	// ErrNotFound is returned when a requested resource cannot be found.
	// Wraps store.ErrNotFound for consistent error checking.
	ErrNotFound = fmt.Errorf("webmail: %w", store.ErrNotFound)

	// ErrUserNotFound is returned when a user cannot be resolved.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrMailboxNotFound is returned when a mailbox cannot be found.
	ErrMailboxNotFound = fmt.Errorf("mailbox %w", ErrNotFound)

	// ErrMessageNotFound is returned when a message cannot be found,
	// including when a neighbor query runs past the mailbox boundary.
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)

	// ErrPageNotFound is returned when a requested page number is beyond
	// the last page of results.
	ErrPageNotFound = fmt.Errorf("page %w", ErrNotFound)

	// ErrUnauthorized is returned when a user operates on a message
	// outside their own mailbox.
	ErrUnauthorized = errors.New("webmail: unauthorized")

	// ErrUnknownRecipient is returned (per recipient, inside a
	// DeliveryError) when a recipient address resolves to no user.
	ErrUnknownRecipient = errors.New("webmail: unknown recipient")

	// ErrDeliveryFailed is the sentinel wrapped by DeliveryError.
	ErrDeliveryFailed = errors.New("webmail: delivery failed")

	// ErrInvalidRequest is the sentinel wrapped by ValidationError.
	ErrInvalidRequest = errors.New("webmail: invalid request")

	// ErrStoreRequired is returned when no store is configured.
	ErrStoreRequired = errors.New("webmail: store is required")

	// ErrNotConnected is returned when operations are attempted before Connect().
	// Wraps store.ErrNotConnected for consistent error checking.
	ErrNotConnected = fmt.Errorf("webmail: %w", store.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps store.ErrAlreadyConnected for consistent error checking.
	ErrAlreadyConnected = fmt.Errorf("webmail: %w", store.ErrAlreadyConnected)

	// ErrInvalidID is returned when an invalid ID is provided.
	// Wraps store.ErrInvalidID for consistent error checking.
	ErrInvalidID = fmt.Errorf("webmail: %w", store.ErrInvalidID)

	// ErrInvalidUserID is returned when a user ID contains invalid characters.
	ErrInvalidUserID = errors.New("webmail: invalid user id")

	// ErrUnavailable is returned when the storage backend cannot be
	// reached. Wraps store.ErrUnavailable for consistent error checking.
	ErrUnavailable = fmt.Errorf("webmail: %w", store.ErrUnavailable)
)

// ValidationError provides details about a validation failure.
// The Field names the request field that failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("webmail: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// IsValidationError checks if the error is a validation error and returns details.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// DeliveryError reports per-recipient delivery outcomes for a send.
//
// When every recipient fails, no sender copy is created and Send returns
// a nil result alongside this error. When only some recipients fail,
// Send returns the result for the delivered recipients AND this error.
type DeliveryError struct {
	// MessageID is the sender copy's ID. Empty when all recipients failed.
	MessageID string
	// Delivered contains recipient addresses that received the message.
	Delivered []string
	// Failed maps recipient addresses to their delivery errors.
	Failed map[string]error
}

func (e *DeliveryError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "webmail: delivery failed for %d of %d recipients",
		len(e.Failed), len(e.Delivered)+len(e.Failed))
	if len(e.Failed) > 0 {
		sb.WriteString(" (")
		count := 0
		const maxShown = 5
		for addr := range e.Failed {
			if count > 0 {
				sb.WriteString(", ")
			}
			if count >= maxShown {
				fmt.Fprintf(&sb, "...and %d more", len(e.Failed)-maxShown)
				break
			}
			sb.WriteString(addr)
			count++
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *DeliveryError) Unwrap() error {
	return ErrDeliveryFailed
}

// AllFailed returns true if no recipients received the message.
func (e *DeliveryError) AllFailed() bool {
	return len(e.Delivered) == 0
}

// FailedRecipients returns the list of recipient addresses that failed.
func (e *DeliveryError) FailedRecipients() []string {
	addrs := make([]string, 0, len(e.Failed))
	for addr := range e.Failed {
		addrs = append(addrs, addr)
	}
	return addrs
}

// IsDeliveryError checks if the error is a delivery error and returns details.
func IsDeliveryError(err error) (*DeliveryError, bool) {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// IsUnauthorized returns true if the error indicates an access violation.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsUnavailable returns true if the error indicates a storage failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, store.ErrUnavailable)
}
