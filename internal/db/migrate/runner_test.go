package migrate

import (
	"errors"
	"strings"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		err := Run(dsn, Up)
		if err == nil {
			t.Fatalf("Run(%q) should return error", dsn)
		}
		if !strings.Contains(err.Error(), "DATABASE_URL is not set") {
			t.Errorf("error = %q, should mention DATABASE_URL", err.Error())
		}
	}
}

func TestParseDirection(t *testing.T) {
	testCases := []struct {
		input string
		want  Direction
		err   bool
	}{
		{"up", Up, false},
		{"down", Down, false},
		{"", "", true},
		{"UP", "", true},
		{"sideways", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseDirection(tc.input)
			if tc.err {
				if err == nil {
					t.Errorf("ParseDirection(%q) should fail", tc.input)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("ParseDirection(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
			}
		})
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	if err := Run("postgres://localhost/test", Direction("left")); err == nil {
		t.Error("Run with invalid direction should return error")
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	for _, dsn := range []string{"invalid-dsn", "postgres://localhost with spaces/test"} {
		err := Run(dsn, Up)
		if err == nil {
			t.Errorf("Run with invalid DSN %q should return error", dsn)
		}
		if errors.Is(err, ErrNoChange) {
			t.Error("Run should never surface ErrNoChange")
		}
	}
}

func TestFiles_PairedMigrations(t *testing.T) {
	names, err := Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(names) == 0 || len(names)%2 != 0 {
		t.Fatalf("migrations = %v, want up/down pairs", names)
	}
	ups, downs := 0, 0
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups++
		case strings.HasSuffix(n, ".down.sql"):
			downs++
		default:
			t.Errorf("unexpected migration file %q", n)
		}
	}
	if ups != downs {
		t.Errorf("%d up vs %d down migrations", ups, downs)
	}
}
