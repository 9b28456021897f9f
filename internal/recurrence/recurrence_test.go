package recurrence

import (
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/apperrors"
)

func TestParseRejectsUnsupportedFields(t *testing.T) {
	cases := []string{
		"RRULE:FREQ=YEARLY",
		"RRULE:FREQ=MONTHLY;BYSETPOS=-1;BYDAY=FR",
		"RRULE:FREQ=WEEKLY", // missing BYDAY
		"RRULE:FREQ=DAILY;BYYEARDAY=1",
	}

	for _, rule := range cases {
		if _, err := Parse(rule); err == nil {
			t.Errorf("Parse(%q) expected ErrUnsupportedRule, got nil", rule)
		} else if got := apperrors.Kind(err); got != "UnsupportedRule" {
			t.Errorf("Parse(%q) kind = %q, want UnsupportedRule", rule, got)
		}
	}
}

func TestParseAcceptsSupportedProfile(t *testing.T) {
	cases := []string{
		"RRULE:FREQ=DAILY;COUNT=5",
		"RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR",
		"RRULE:FREQ=MONTHLY;BYMONTHDAY=1,15",
		"RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=TU;UNTIL=20251231T000000Z",
	}

	for _, rule := range cases {
		if _, err := Parse(rule); err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", rule, err)
		}
	}
}

// TestExpandWeeklyMatchesLiteralScenario covers spec scenario 1: a
// Mon/Wed/Fri weekly class expanded over a window that should include both
// endpoints.
func TestExpandWeeklyMatchesLiteralScenario(t *testing.T) {
	rule, err := Parse("RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	dtstart := time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC) // naive: Monday 07:00
	rangeStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2025, 1, 10, 23, 59, 59, 0, time.UTC)

	occurrences, err := rule.Expand(dtstart, rangeStart, rangeEnd)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	want := []string{"2025-01-06", "2025-01-08", "2025-01-10"}
	if len(occurrences) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %v", len(occurrences), len(want), occurrences)
	}
	for i, occ := range occurrences {
		if got := occ.Format("2006-01-02"); got != want[i] {
			t.Errorf("occurrence[%d] = %s, want %s", i, got, want[i])
		}
	}
}

func TestExpandDailyRespectsCount(t *testing.T) {
	rule, err := Parse("RRULE:FREQ=DAILY;COUNT=3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	dtstart := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	occurrences, err := rule.Expand(dtstart, dtstart, dtstart.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occurrences) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(occurrences))
	}
}
