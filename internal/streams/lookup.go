package streams

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"logrouter/pkg/models"
)

var (
	// ErrInvertedExactUnsupported marks streams whose only rule is an
	// inverted EXACT rule. The index does not implement them.
	ErrInvertedExactUnsupported = errors.New("inverted exact rules are not indexed")
	ErrUnsupportedRuleType      = errors.New("rule type is not indexed")
	ErrMultipleRules            = errors.New("streams with more than one rule are not indexed")
	ErrNoRules                  = errors.New("streams without rules are not indexed")
	ErrStreamDisabled           = errors.New("stream is disabled")
)

type SkipReason string

const (
	SkipMultipleRules   SkipReason = "multiple_rules"
	SkipNoRules         SkipReason = "no_rules"
	SkipInvertedExact   SkipReason = "inverted_exact"
	SkipUnsupportedType SkipReason = "unsupported_rule_type"
	SkipDisabled        SkipReason = "disabled"
)

// SkippedStream explains why a stream is absent from the index.
type SkippedStream struct {
	Stream *Stream
	Reason SkipReason
	Err    error
}

// StreamLoader returns every enabled stream with its rules.
type StreamLoader interface {
	LoadAllEnabled(ctx context.Context) ([]Stream, error)
}

// Lookup is an immutable index over single-rule EXACT and PRESENCE streams.
// It is safe for concurrent readers. Rule changes need a new Lookup.
//
// EXACT keys are the plain concatenation of field name and value, so field
// "ab" with value "c" and field "a" with value "bc" share a bucket.
type Lookup struct {
	presence         map[string][]*Stream
	presenceInverted map[string][]*Stream
	exact            map[string][]*Stream
	exactFields      []string

	checked   []*Stream
	checkedID map[string]struct{}
	skipped   []SkippedStream
}

func NewLookup(streams []Stream) *Lookup {
	l := &Lookup{
		presence:         make(map[string][]*Stream),
		presenceInverted: make(map[string][]*Stream),
		exact:            make(map[string][]*Stream),
		checkedID:        make(map[string]struct{}),
	}

	exactFields := make(map[string]struct{})
	for i := range streams {
		stream := copyStream(streams[i])

		if stream.Disabled {
			l.skip(stream, SkipDisabled, ErrStreamDisabled)
			continue
		}

		switch len(stream.Rules) {
		case 0:
			l.skip(stream, SkipNoRules, ErrNoRules)
			continue
		case 1:
		default:
			l.skip(stream, SkipMultipleRules, ErrMultipleRules)
			continue
		}

		rule := stream.Rules[0]
		switch rule.Type {
		case RuleExact:
			if rule.Inverted {
				l.skip(stream, SkipInvertedExact, ErrInvertedExactUnsupported)
				continue
			}
			exactFields[rule.Field] = struct{}{}
			l.add(l.exact, exactKey(rule.Field, rule.Value), stream)
		case RulePresence:
			if rule.Inverted {
				l.add(l.presenceInverted, rule.Field, stream)
			} else {
				l.add(l.presence, rule.Field, stream)
			}
		case RuleGreater, RuleSmaller, RuleRegex:
			l.skip(stream, SkipUnsupportedType, fmt.Errorf("%w: %s", ErrUnsupportedRuleType, rule.Type))
		default:
			l.skip(stream, SkipUnsupportedType, fmt.Errorf("%w: %s", ErrUnsupportedRuleType, rule.Type))
		}
	}

	l.exactFields = make([]string, 0, len(exactFields))
	for field := range exactFields {
		l.exactFields = append(l.exactFields, field)
	}
	sort.Strings(l.exactFields)

	return l
}

// LoadLookup builds a Lookup from the loader's current enabled streams.
func LoadLookup(ctx context.Context, loader StreamLoader) (*Lookup, error) {
	streams, err := loader.LoadAllEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load enabled streams: %w", err)
	}
	return NewLookup(streams), nil
}

func copyStream(s Stream) *Stream {
	out := s
	out.Rules = append([]Rule(nil), s.Rules...)
	return &out
}

func exactKey(field string, value interface{}) string {
	return field + fmt.Sprint(value)
}

func (l *Lookup) add(bucket map[string][]*Stream, key string, stream *Stream) {
	bucket[key] = append(bucket[key], stream)
	if _, ok := l.checkedID[stream.ID]; !ok {
		l.checkedID[stream.ID] = struct{}{}
		l.checked = append(l.checked, stream)
	}
}

func (l *Lookup) skip(stream *Stream, reason SkipReason, err error) {
	l.skipped = append(l.skipped, SkippedStream{Stream: stream, Reason: reason, Err: err})
}

// Matches returns every indexed stream whose rule holds for fields. The
// result has no duplicates and is ordered by stream id.
func (l *Lookup) Matches(fields map[string]interface{}) []*Stream {
	seen := make(map[string]struct{})
	var result []*Stream
	collect := func(streams []*Stream) {
		for _, s := range streams {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			result = append(result, s)
		}
	}

	for field, streams := range l.presence {
		if _, ok := fields[field]; ok {
			collect(streams)
		}
	}

	for field, streams := range l.presenceInverted {
		if _, ok := fields[field]; !ok {
			collect(streams)
		}
	}

	for _, field := range l.exactFields {
		value, ok := fields[field]
		if !ok {
			continue
		}
		if streams, ok := l.exact[exactKey(field, value)]; ok {
			collect(streams)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (l *Lookup) MatchMessage(msg *models.Message) []*Stream {
	return l.Matches(msg.Fields())
}

// CheckedStreams returns every stream the index can match, ordered by id.
// Streams outside this set need the complete evaluator.
func (l *Lookup) CheckedStreams() []*Stream {
	out := append([]*Stream(nil), l.checked...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (l *Lookup) IsChecked(streamID string) bool {
	_, ok := l.checkedID[streamID]
	return ok
}

// Skipped lists the streams left out of the index and why.
func (l *Lookup) Skipped() []SkippedStream {
	return append([]SkippedStream(nil), l.skipped...)
}

// SkippedCounts groups Skipped by reason.
func (l *Lookup) SkippedCounts() map[string]int {
	counts := make(map[string]int)
	for _, s := range l.skipped {
		counts[string(s.Reason)]++
	}
	return counts
}
