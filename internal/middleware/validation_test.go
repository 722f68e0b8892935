package middleware

import (
	"strings"
	"testing"
)

func TestValidateChatContent(t *testing.T) {
	if err := ValidateChatContent("I want six sarees"); err != nil {
		t.Errorf("valid content rejected: %v", err)
	}
	if err := ValidateChatContent(""); err == nil {
		t.Error("empty content accepted")
	}
	if err := ValidateChatContent(strings.Repeat("a", 10001)); err == nil {
		t.Error("oversized content accepted")
	}
	if err := ValidateChatContent("\xff\xfe"); err == nil {
		t.Error("invalid UTF-8 accepted")
	}
}

func TestValidateSessionID(t *testing.T) {
	if err := ValidateSessionID("0190274e-0000-7000-8000-000000000000"); err != nil {
		t.Errorf("valid UUID rejected: %v", err)
	}
	if err := ValidateSessionID("not-a-uuid"); err == nil {
		t.Error("malformed session ID accepted")
	}
}

func TestValidateVendorID(t *testing.T) {
	if err := ValidateVendorID("fallback-1"); err != nil {
		t.Errorf("provider vendor ID rejected: %v", err)
	}
	if err := ValidateVendorID(""); err == nil {
		t.Error("empty vendor ID accepted")
	}
	if err := ValidateVendorID(strings.Repeat("x", 129)); err == nil {
		t.Error("oversized vendor ID accepted")
	}
}
