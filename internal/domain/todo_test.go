package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		want    string
		wantErr bool
	}{
		{"plain", "buy milk", "buy milk", false},
		{"trims whitespace", "  buy milk \n", "buy milk", false},
		{"empty", "", "", true},
		{"whitespace only", " \t ", "", true},
		{"at limit", strings.Repeat("a", MaxTitleLength), strings.Repeat("a", MaxTitleLength), false},
		{"over limit", strings.Repeat("a", MaxTitleLength+1), "", true},
		{"multibyte at limit", strings.Repeat("é", MaxTitleLength), strings.Repeat("é", MaxTitleLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTitle(tt.title)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("NormalizeTitle(%q) error = %v, want ErrInvalidInput", tt.title, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeTitle(%q) error = %v", tt.title, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}
