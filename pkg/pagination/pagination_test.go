package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 12, 30, 0, 123, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if got == nil || !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("expected %+v got %+v", want, got)
	}
}

func TestParseCursorEmptyAndMalformed(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("empty cursor should mean first page, got %v %v", c, err)
	}
	for _, token := range []string{"%%%", "bm9waXBl", EncodeCursor(Cursor{})[:4]} {
		if _, err := ParseCursor(token); err == nil {
			t.Fatalf("expected error for %q", token)
		}
	}
}

func TestTrimReturnsNextCursorOnlyWhenMoreRows(t *testing.T) {
	type row struct {
		at time.Time
		id uuid.UUID
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{{base.Add(3 * time.Hour), uuid.New()}, {base.Add(2 * time.Hour), uuid.New()}, {base, uuid.New()}}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, 2, key)
	if len(page) != 2 || next == nil || next.ID != rows[1].id {
		t.Fatalf("expected two rows and cursor at second row, got %d %v", len(page), next)
	}
	page, next = Trim(rows, 3, key)
	if len(page) != 3 || next != nil {
		t.Fatalf("expected last page without cursor")
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, MaxLimit + 1: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d want %d", in, got, want)
		}
	}
	if FetchSize(10) != 11 {
		t.Fatalf("expected fetch size to include lookahead row")
	}
}
