package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateChatContent validates an inbound chat message body.
func ValidateChatContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 10000 {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateCallID validates a call ID.
func ValidateCallID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid call ID format")
	}
	return nil
}

// ValidateVendorID validates a vendor ID. Vendor IDs come from the
// discovery provider and are not always UUIDs.
func ValidateVendorID(id string) error {
	if len(id) == 0 {
		return errors.New("vendor ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("vendor ID exceeds maximum length")
	}
	return nil
}
