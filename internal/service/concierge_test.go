package service

import (
	"strings"
	"testing"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
)

func TestFormatVendorList(t *testing.T) {
	got := formatVendorList([]model.Vendor{
		{Name: "Silk House", Address: "1 MG Road", Rating: 4.4},
		{Name: "Cotton Corner", Address: "2 Brigade Road"},
	})

	if !strings.Contains(got, "1. Silk House, 1 MG Road (4.4 stars)") {
		t.Errorf("rated vendor line missing or malformed:\n%s", got)
	}
	if !strings.Contains(got, "2. Cotton Corner, 2 Brigade Road") {
		t.Errorf("unrated vendor line missing or malformed:\n%s", got)
	}

	// The list renders into SMS-style chat text; keep it plain ASCII.
	for _, r := range got {
		if r > 127 {
			t.Fatalf("non-ASCII rune %q in vendor list:\n%s", r, got)
		}
	}
}
