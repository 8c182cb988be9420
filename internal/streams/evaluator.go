package streams

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
)

const fieldsVar = "fields"

type compiledStream struct {
	stream     *Stream
	expression string
	program    cel.Program
}

// Evaluator matches the streams the Lookup does not index. Each stream's
// rules are compiled into one CEL program and combined with AND.
type Evaluator struct {
	streams  []compiledStream
	rejected []SkippedStream
}

func newEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(fieldsVar, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// NewEvaluator compiles every enabled stream with at least one rule that
// indexed reports false for. Streams whose rules cannot be compiled are kept
// in Rejected and never match.
func NewEvaluator(streams []Stream, indexed func(streamID string) bool) (*Evaluator, error) {
	env, err := newEnv()
	if err != nil {
		return nil, err
	}

	e := &Evaluator{}
	for i := range streams {
		stream := copyStream(streams[i])
		if stream.Disabled || len(stream.Rules) == 0 {
			continue
		}
		if indexed != nil && indexed(stream.ID) {
			continue
		}

		expression, err := BuildExpression(stream.Rules)
		if err != nil {
			e.rejected = append(e.rejected, SkippedStream{Stream: stream, Reason: SkipUnsupportedType, Err: err})
			continue
		}

		program, err := compile(env, expression)
		if err != nil {
			e.rejected = append(e.rejected, SkippedStream{Stream: stream, Reason: SkipUnsupportedType, Err: err})
			continue
		}

		e.streams = append(e.streams, compiledStream{stream: stream, expression: expression, program: program})
	}

	sort.Slice(e.streams, func(i, j int) bool { return e.streams[i].stream.ID < e.streams[j].stream.ID })
	return e, nil
}

func compile(env *cel.Env, expression string) (cel.Program, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("stream expression must return bool, got %v", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return program, nil
}

// BuildExpression renders rules as one CEL expression over the fields map.
func BuildExpression(rules []Rule) (string, error) {
	if len(rules) == 0 {
		return "", ErrNoRules
	}

	parts := make([]string, 0, len(rules))
	for _, rule := range rules {
		expr, err := ruleExpression(rule)
		if err != nil {
			return "", err
		}
		parts = append(parts, expr)
	}
	return strings.Join(parts, " && "), nil
}

func ruleExpression(rule Rule) (string, error) {
	field := strconv.Quote(rule.Field)
	present := fmt.Sprintf("(%s in %s)", field, fieldsVar)
	value := fmt.Sprintf("%s[%s]", fieldsVar, field)

	var expr string
	switch rule.Type {
	case RuleExact:
		expr = fmt.Sprintf("(%s && string(%s) == %s)", present, value, strconv.Quote(rule.Value))
	case RuleGreater, RuleSmaller:
		bound, err := strconv.ParseFloat(strings.TrimSpace(rule.Value), 64)
		if err != nil {
			return "", fmt.Errorf("rule on %q: value %q is not a number", rule.Field, rule.Value)
		}
		op := ">"
		if rule.Type == RuleSmaller {
			op = "<"
		}
		expr = fmt.Sprintf("(%s && double(%s) %s %s)", present, value, op, strconv.FormatFloat(bound, 'f', -1, 64)+floatSuffix(bound))
	case RuleRegex:
		if _, err := regexp.Compile(rule.Value); err != nil {
			return "", fmt.Errorf("rule on %q: invalid regex: %w", rule.Field, err)
		}
		expr = fmt.Sprintf("(%s && string(%s).matches(%s))", present, value, strconv.Quote(rule.Value))
	case RulePresence:
		expr = present
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedRuleType, rule.Type)
	}

	if rule.Inverted {
		return "!" + expr, nil
	}
	return expr, nil
}

// floatSuffix keeps integral bounds typed as CEL doubles.
func floatSuffix(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if strings.ContainsAny(s, ".eE") {
		return ""
	}
	return ".0"
}

// Matches returns the compiled streams whose expression holds. Evaluation
// errors, such as a non-numeric value in a numeric comparison, count as no
// match for that stream.
func (e *Evaluator) Matches(ctx context.Context, fields map[string]interface{}) []*Stream {
	vars := map[string]interface{}{fieldsVar: fields}

	var result []*Stream
	for _, cs := range e.streams {
		if ctx.Err() != nil {
			return result
		}
		out, _, err := cs.program.ContextEval(ctx, vars)
		if err != nil {
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			result = append(result, cs.stream)
		}
	}
	return result
}

// Expression returns the compiled expression for streamID.
func (e *Evaluator) Expression(streamID string) (string, bool) {
	for _, cs := range e.streams {
		if cs.stream.ID == streamID {
			return cs.expression, true
		}
	}
	return "", false
}

func (e *Evaluator) Len() int {
	return len(e.streams)
}

func (e *Evaluator) Rejected() []SkippedStream {
	return append([]SkippedStream(nil), e.rejected...)
}
