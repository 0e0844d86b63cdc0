package analysis

import (
	"encoding/json"
	"testing"

	"github.com/hpungsan/lexis/internal/errors"
)

func TestParsePermission(t *testing.T) {
	tests := []struct {
		in      string
		want    Permission
		wantErr bool
	}{
		{"", PermissionViewOnly, false},
		{"view-only", PermissionViewOnly, false},
		{" Allow-Reshare ", PermissionAllowReshare, false},
		{"edit", "", true},
		{"allow_reshare", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePermission(tt.in)
		if tt.wantErr {
			if !errors.Is(err, errors.ErrValidation) {
				t.Errorf("ParsePermission(%q) error = %v, want VALIDATION", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePermission(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParsePermission(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPermission_CanReshare(t *testing.T) {
	if PermissionViewOnly.CanReshare() {
		t.Error("view-only must not allow reshare")
	}
	if !PermissionAllowReshare.CanReshare() {
		t.Error("allow-reshare must allow reshare")
	}
}

func TestSnapshot_DoesNotAlias(t *testing.T) {
	r := &Result{
		ID:      "01A",
		Title:   "Analysis Result: T",
		Content: "v1",
		Address: "addr",
		Payloads: Payloads{
			Sentiment: json.RawMessage(`{"label":"Positive"}`),
		},
	}
	s := Snapshot(r)
	r.Sentiment[2] = 'X'

	if string(s.Sentiment) != `{"label":"Positive"}` {
		t.Errorf("snapshot payload changed with source: %s", s.Sentiment)
	}
	if s.AnalysisID != "01A" || s.Address != "addr" || s.Content != "v1" {
		t.Errorf("snapshot fields not copied: %+v", s)
	}
}
