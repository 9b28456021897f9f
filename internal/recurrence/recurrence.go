// Package recurrence validates and expands the RFC 5545 subset described by
// spec.md §4.2, delegating the actual expansion to rrule-go. Expansion runs
// entirely in the naive representation (internal/tz): the dtstart handed to
// the expander is the template's local date and time, so BYDAY matches local
// weekdays regardless of the schedule's UTC offset, and the range boundaries
// are converted from absolute to naive before calling into rrule-go.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/session-scheduler/internal/apperrors"
)

// Rule is a validated RFC 5545 recurrence string restricted to the profile
// spec.md §4.2 allows: FREQ in {DAILY,WEEKLY,MONTHLY}, any INTERVAL, BYDAY
// required for WEEKLY, simple BYMONTHDAY for MONTHLY, and a terminating
// UNTIL or COUNT.
type Rule struct {
	raw string
	opt rrule.ROption
}

// Parse validates s against the supported profile and returns a Rule ready
// for expansion. Any field outside the profile (YEARLY, BYSETPOS, nth-weekday
// BYDAY forms, etc.) is rejected with apperrors.ErrUnsupportedRule.
func Parse(s string) (Rule, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "RRULE:")
	opt, err := rrule.StrToROption(trimmed)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", apperrors.ErrUnsupportedRule, err)
	}

	if err := validateProfile(opt); err != nil {
		return Rule{}, err
	}

	return Rule{raw: s, opt: *opt}, nil
}

func validateProfile(opt *rrule.ROption) error {
	switch opt.Freq {
	case rrule.DAILY, rrule.WEEKLY, rrule.MONTHLY:
	default:
		return fmt.Errorf("%w: unsupported FREQ", apperrors.ErrUnsupportedRule)
	}

	if opt.Interval < 0 {
		return fmt.Errorf("%w: INTERVAL must be positive", apperrors.ErrUnsupportedRule)
	}

	if opt.Freq == rrule.WEEKLY && len(opt.Byweekday) == 0 {
		return fmt.Errorf("%w: BYDAY is required for WEEKLY", apperrors.ErrUnsupportedRule)
	}

	for _, wd := range opt.Byweekday {
		if wd.N() != 0 {
			return fmt.Errorf("%w: nth-weekday BYDAY is not supported", apperrors.ErrUnsupportedRule)
		}
	}

	if opt.Freq == rrule.MONTHLY && len(opt.Byweekday) != 0 {
		return fmt.Errorf("%w: BYDAY on MONTHLY is not supported", apperrors.ErrUnsupportedRule)
	}

	if len(opt.Bysetpos) != 0 {
		return fmt.Errorf("%w: BYSETPOS is not supported", apperrors.ErrUnsupportedRule)
	}
	if len(opt.Byyearday) != 0 || len(opt.Byweekno) != 0 || len(opt.Bymonth) != 0 {
		return fmt.Errorf("%w: only FREQ/INTERVAL/BYDAY/BYMONTHDAY/UNTIL/COUNT are supported", apperrors.ErrUnsupportedRule)
	}

	return nil
}

// Expand returns the naive occurrence instants of rule that fall within
// [naiveRangeStart, naiveRangeEnd] inclusive, given dtstartNaive as the
// template's naive start. All arguments and the returned instants are naive
// (internal/tz.AbsoluteToNaive/NaiveToAbsolute convert at the boundary).
func (r Rule) Expand(dtstartNaive, naiveRangeStart, naiveRangeEnd time.Time) ([]time.Time, error) {
	opt := r.opt
	opt.Dtstart = dtstartNaive

	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnsupportedRule, err)
	}

	var set rrule.Set
	set.RRule(rr)

	return set.Between(naiveRangeStart, naiveRangeEnd, true), nil
}

// String returns the rule's original textual form.
func (r Rule) String() string {
	return r.raw
}
