package webmail

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MessageLimits holds configurable limits for message content.
type MessageLimits struct {
	MaxSubjectLength int
	MaxBodySize      int
	MaxRecipients    int
}

// DefaultLimits returns the default message limits.
func DefaultLimits() MessageLimits {
	return MessageLimits{
		MaxSubjectLength: DefaultMaxSubjectLength,
		MaxBodySize:      DefaultMaxBodySize,
		MaxRecipients:    DefaultMaxRecipients,
	}
}

// ValidateSendRequest validates a send request against the given limits.
// The recipient count check applies to the deduplicated union of To, CC,
// and BCC, so callers must dedupe before validating.
func ValidateSendRequest(req SendRequest, recipients []string, limits MessageLimits) error {
	if len(recipients) == 0 {
		return &ValidationError{Field: "to", Message: "at least one recipient is required"}
	}
	if len(recipients) > limits.MaxRecipients {
		return &ValidationError{
			Field:   "to",
			Message: fmt.Sprintf("recipient count %d exceeds maximum %d", len(recipients), limits.MaxRecipients),
		}
	}
	for _, addr := range recipients {
		if err := validateAddress(addr); err != nil {
			return err
		}
	}
	if err := ValidateSubject(req.Subject, limits); err != nil {
		return err
	}
	return ValidateBody(req.Body, limits)
}

// ValidateSubject validates a message subject against the given limits.
func ValidateSubject(subject string, limits MessageLimits) error {
	if strings.TrimSpace(subject) == "" {
		return &ValidationError{Field: "subject", Message: "subject is required"}
	}
	if len(subject) > limits.MaxSubjectLength {
		return &ValidationError{
			Field:   "subject",
			Message: fmt.Sprintf("subject length %d exceeds maximum %d", len(subject), limits.MaxSubjectLength),
		}
	}
	if !utf8.ValidString(subject) {
		return &ValidationError{Field: "subject", Message: "subject contains invalid UTF-8"}
	}
	return nil
}

// ValidateBody validates a message body against the given limits.
// An empty body is allowed.
func ValidateBody(body string, limits MessageLimits) error {
	if len(body) > limits.MaxBodySize {
		return &ValidationError{
			Field:   "body",
			Message: fmt.Sprintf("body size %d exceeds maximum %d", len(body), limits.MaxBodySize),
		}
	}
	if !utf8.ValidString(body) {
		return &ValidationError{Field: "body", Message: "body contains invalid UTF-8"}
	}
	return nil
}

// validateAddress checks that a recipient address is plausible. Full
// resolution happens against the user directory during send; this only
// rejects obviously malformed input.
func validateAddress(addr string) error {
	if addr == "" {
		return &ValidationError{Field: "to", Message: "empty recipient address"}
	}
	at := strings.IndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return &ValidationError{
			Field:   "to",
			Message: fmt.Sprintf("malformed recipient address: %s", addr),
		}
	}
	for _, c := range addr {
		if c < 33 || c == 127 {
			return &ValidationError{
				Field:   "to",
				Message: fmt.Sprintf("recipient address contains invalid characters: %s", addr),
			}
		}
	}
	return nil
}

// uniqueRecipients returns the deduplicated union of the given address
// lists, preserving first-seen order. Addresses are compared
// case-insensitively.
func uniqueRecipients(lists ...[]string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, list := range lists {
		for _, addr := range list {
			key := strings.ToLower(addr)
			if !seen[key] {
				seen[key] = true
				unique = append(unique, addr)
			}
		}
	}
	return unique
}
