package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Condition is a parsed branch condition. The grammar is closed: four shapes
// are recognized, and anything else parses to a condition that is never true.
// Eval is total; it never fails.
type Condition interface {
	// Eval reports whether the condition holds for the given response text
	// and variable bindings.
	Eval(response string, vars Bindings) bool

	// Raw returns the original condition text.
	Raw() string
}

var (
	containsRe    = regexp.MustCompile(`(?i)response contains ['"](.+?)['"]`)
	notContainsRe = regexp.MustCompile(`(?i)response not contains ['"](.+?)['"]`)
	lengthGTRe    = regexp.MustCompile(`(?i)response length > (\d+)`)
	lengthLTRe    = regexp.MustCompile(`(?i)response length < (\d+)`)
)

// ParseCondition parses raw condition text into one of the four recognized
// shapes, checked in priority order: substring match, negated substring match,
// length comparison, variable equality. Unrecognized text parses to an
// always-false condition so that malformed rules are simply never taken.
func ParseCondition(raw string) Condition {
	text := strings.TrimSpace(raw)
	lower := strings.ToLower(text)

	if strings.Contains(lower, "response not contains") {
		if m := notContainsRe.FindStringSubmatch(text); m != nil {
			return condNotContains{raw: raw, text: m[1]}
		}
	}

	if strings.Contains(lower, "response contains") {
		if m := containsRe.FindStringSubmatch(text); m != nil {
			return condContains{raw: raw, text: m[1]}
		}
	}

	if strings.Contains(lower, "response length") {
		if m := lengthGTRe.FindStringSubmatch(text); m != nil {
			n, _ := strconv.Atoi(m[1])
			return condLength{raw: raw, greater: true, n: n}
		}
		if m := lengthLTRe.FindStringSubmatch(text); m != nil {
			n, _ := strconv.Atoi(m[1])
			return condLength{raw: raw, greater: false, n: n}
		}
	}

	// Exactly one "==": chained comparisons are not part of the grammar.
	if parts := strings.Split(text, "=="); len(parts) == 2 {
		return condVarEquals{
			raw:   raw,
			name:  strings.TrimSpace(parts[0]),
			value: strings.Trim(strings.TrimSpace(parts[1]), `'"`),
		}
	}

	return condNever{raw: raw}
}

type condContains struct {
	raw  string
	text string
}

func (c condContains) Eval(response string, _ Bindings) bool {
	return strings.Contains(strings.ToLower(response), strings.ToLower(c.text))
}

func (c condContains) Raw() string { return c.raw }

type condNotContains struct {
	raw  string
	text string
}

func (c condNotContains) Eval(response string, _ Bindings) bool {
	return !strings.Contains(strings.ToLower(response), strings.ToLower(c.text))
}

func (c condNotContains) Raw() string { return c.raw }

type condLength struct {
	raw     string
	greater bool
	n       int
}

func (c condLength) Eval(response string, _ Bindings) bool {
	if c.greater {
		return len(response) > c.n
	}
	return len(response) < c.n
}

func (c condLength) Raw() string { return c.raw }

type condVarEquals struct {
	raw   string
	name  string
	value string
}

func (c condVarEquals) Eval(_ string, vars Bindings) bool {
	v, ok := vars[c.name]
	if !ok {
		return false
	}
	return v == c.value
}

func (c condVarEquals) Raw() string { return c.raw }

// condNever is the fail-closed fallback for unrecognized condition text.
type condNever struct {
	raw string
}

func (c condNever) Eval(string, Bindings) bool { return false }

func (c condNever) Raw() string { return c.raw }
