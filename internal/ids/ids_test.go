package ids

import (
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestNewIsSortableAndParseable(t *testing.T) {
	prev := ""
	for i := 0; i < 100; i++ {
		id := New()
		if _, err := ulid.ParseStrict(id); err != nil {
			t.Fatalf("ParseStrict(%q): %v", id, err)
		}
		if id <= prev {
			t.Fatalf("ids are not increasing: %q after %q", id, prev)
		}
		prev = id
	}
}
