package streams

import (
	"fmt"
	"strconv"
	"strings"
)

// RuleType is the comparison a stream rule performs. The numeric values are
// the ones persisted in the streams collection.
type RuleType int

const (
	RuleExact    RuleType = 1
	RuleRegex    RuleType = 2
	RuleGreater  RuleType = 3
	RuleSmaller  RuleType = 4
	RulePresence RuleType = 5
)

func (t RuleType) String() string {
	switch t {
	case RuleExact:
		return "exact"
	case RuleRegex:
		return "regex"
	case RuleGreater:
		return "greater"
	case RuleSmaller:
		return "smaller"
	case RulePresence:
		return "presence"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

func (t RuleType) Valid() bool {
	return t >= RuleExact && t <= RulePresence
}

// ParseRuleType accepts a rule type name in any case or its numeric code.
func ParseRuleType(s string) (RuleType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return RuleExact, nil
	case "regex":
		return RuleRegex, nil
	case "greater":
		return RuleGreater, nil
	case "smaller":
		return RuleSmaller, nil
	case "presence":
		return RulePresence, nil
	}
	if n, err := strconv.Atoi(s); err == nil && RuleType(n).Valid() {
		return RuleType(n), nil
	}
	return 0, fmt.Errorf("unknown stream rule type %q", s)
}

func (t RuleType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid stream rule type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *RuleType) UnmarshalText(text []byte) error {
	parsed, err := ParseRuleType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Rule is a single predicate attached to a stream.
type Rule struct {
	ID       string   `json:"id" bson:"_id,omitempty"`
	Field    string   `json:"field" bson:"field"`
	Value    string   `json:"value,omitempty" bson:"value"`
	Type     RuleType `json:"type" bson:"type"`
	Inverted bool     `json:"inverted" bson:"inverted"`
}

// Stream is a named subscription. Messages matching its rules are routed to it.
type Stream struct {
	ID          string `json:"id" bson:"_id"`
	Title       string `json:"title" bson:"title"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	Rules       []Rule `json:"rules" bson:"rules"`
	Disabled    bool   `json:"disabled" bson:"disabled"`
}
