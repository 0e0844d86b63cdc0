package ops

import (
	"testing"

	"github.com/hpungsan/lexis/internal/errors"
)

func TestPage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, DefaultListLimit, 0},
		{-5, -1, DefaultListLimit, 0},
		{50, 10, 50, 10},
		{MaxListLimit + 1, 0, MaxListLimit, 0},
	}
	for _, tt := range tests {
		l, o := page(tt.limit, tt.offset)
		if l != tt.wantLimit || o != tt.wantOffset {
			t.Errorf("page(%d, %d) = %d, %d; want %d, %d", tt.limit, tt.offset, l, o, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestNewPagination(t *testing.T) {
	p := newPagination(2, 0, 2, 3)
	if !p.HasMore {
		t.Error("HasMore = false, want true")
	}
	p = newPagination(2, 2, 1, 3)
	if p.HasMore {
		t.Error("HasMore = true, want false")
	}
}

func TestCleanIDs(t *testing.T) {
	got, err := cleanIDs("recipient_ids", []string{" a ", "b", "a"})
	if err != nil {
		t.Fatalf("cleanIDs() error = %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("cleanIDs() = %v, want [a b]", got)
	}

	if _, err := cleanIDs("recipient_ids", nil); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("cleanIDs(nil) error = %v, want VALIDATION", err)
	}
	if _, err := cleanIDs("recipient_ids", []string{"a", "  "}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("cleanIDs(blank entry) error = %v, want VALIDATION", err)
	}
}

func TestNewID_Sorted(t *testing.T) {
	prev := newID()
	for i := 0; i < 100; i++ {
		next := newID()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestCleanOptionalString(t *testing.T) {
	if cleanOptionalString(nil) != nil {
		t.Error("nil should stay nil")
	}
	if cleanOptionalString(stringPtr("  ")) != nil {
		t.Error("blank should become nil")
	}
	if got := cleanOptionalString(stringPtr(" hi ")); got == nil || *got != "hi" {
		t.Errorf("got %v, want hi", got)
	}
}
