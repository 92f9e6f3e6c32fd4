package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RuleDescriptor is the configuration form of a Rule.
//
// Rule is a shorthand such as "every-sunday", "every-other-saturday",
// "every-3-weeks-friday", "2nd-sunday", "1st-3rd-wednesday" or "dates".
type RuleDescriptor struct {
	Rule   string   `yaml:"rule" json:"rule"`
	Anchor string   `yaml:"anchor,omitempty" json:"anchor,omitempty"`
	Dates  []string `yaml:"dates,omitempty" json:"dates,omitempty"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseRule builds and validates the Rule a descriptor names.
func ParseRule(desc RuleDescriptor) (Rule, error) {
	name := strings.ToLower(strings.TrimSpace(desc.Rule))
	if name == "" {
		return nil, fmt.Errorf("%w: empty rule", ErrInvalidRule)
	}

	var anchor Date
	if desc.Anchor != "" {
		a, err := ParseDate(desc.Anchor)
		if err != nil {
			return nil, fmt.Errorf("%w: anchor: %v", ErrInvalidRule, err)
		}
		anchor = a
	}

	rule, err := parseShorthand(name, anchor, desc.Dates)
	if err != nil {
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

func parseShorthand(name string, anchor Date, dates []string) (Rule, error) {
	if name == "dates" {
		set := DateSet{Dates: make([]Date, 0, len(dates))}
		for _, s := range dates {
			d, err := ParseDate(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
			}
			set.Dates = append(set.Dates, d)
		}
		return set, nil
	}

	parts := strings.Split(name, "-")
	wd, ok := weekdays[parts[len(parts)-1]]
	if !ok {
		return nil, fmt.Errorf("%w: %q does not end in a weekday", ErrInvalidRule, name)
	}
	head := parts[:len(parts)-1]

	if len(head) > 0 && head[0] == "every" {
		switch {
		case len(head) == 1:
			return Weekly{Weekday: wd, IntervalWeeks: 1, Anchor: anchor}, nil
		case len(head) == 2 && head[1] == "other":
			return Weekly{Weekday: wd, IntervalWeeks: 2, Anchor: anchor}, nil
		case len(head) == 3 && head[2] == "weeks":
			n, err := strconv.Atoi(head[1])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: bad week interval in %q", ErrInvalidRule, name)
			}
			return Weekly{Weekday: wd, IntervalWeeks: n, Anchor: anchor}, nil
		}
		return nil, fmt.Errorf("%w: unknown rule %q", ErrInvalidRule, name)
	}

	if len(head) == 0 {
		return nil, fmt.Errorf("%w: unknown rule %q", ErrInvalidRule, name)
	}
	ordinals := make([]int, 0, len(head))
	for _, p := range head {
		n, err := parseOrdinal(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRule, name, err)
		}
		ordinals = append(ordinals, n)
	}
	return MonthlyNth{Weekday: wd, Ordinals: ordinals}, nil
}

func parseOrdinal(s string) (int, error) {
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(s, suffix) {
			n, err := strconv.Atoi(strings.TrimSuffix(s, suffix))
			if err != nil {
				break
			}
			if ordinal(n) != s {
				return 0, fmt.Errorf("misspelled ordinal %q", s)
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("not an ordinal: %q", s)
}
