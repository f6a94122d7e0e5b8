package request

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Kind classifies a request line
type Kind uint8

const (
	KindInvalid Kind = iota
	KindArithmetic
	KindAverage
	KindFactorial
	KindReminder
)

func (k Kind) String() string {
	switch k {
	case KindArithmetic:
		return "arithmetic"
	case KindAverage:
		return "average"
	case KindFactorial:
		return "factorial"
	case KindReminder:
		return "reminder"
	default:
		return "invalid"
	}
}

// Reasons attached to invalid requests
const (
	ReasonRemindFormat   = "invalid remind format"
	ReasonFactorialInput = "invalid factorial input"
	ReasonUnrecognized   = "unrecognized request"
)

const remindToken = "remind"

// MaxDelaySeconds is the largest reminder delay that fits a time.Duration
const MaxDelaySeconds = uint64(math.MaxInt64 / int64(time.Second))

// Request is one parsed line. Only the fields of its Kind are set.
type Request struct {
	Kind Kind
	Line string // the line as read, without the trailing newline

	// KindArithmetic
	Operand1 float64
	Operator string
	Operand2 float64

	// KindAverage
	Values []float64

	// KindFactorial
	N uint64

	// KindReminder
	DelaySeconds uint64
	Message      string

	// KindInvalid
	Reason string
}

// Parse classifies one line. It never fails: malformed input yields a
// KindInvalid request carrying a reason.
//
// Rules, first match wins:
//  1. "remind" + whitespace        -> remind <seconds> <message...>
//  2. interior whitespace, all tokens numeric -> average
//  3. exactly <number> <op> <number> -> arithmetic
//  4. a single non-negative integer -> factorial
//  5. anything else                 -> invalid
func Parse(line string) Request {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(line)

	// rule 1, the token must open the line
	if rest, ok := cutRemind(line); ok {
		return parseRemind(line, rest)
	}

	fields := strings.Fields(trimmed)

	// rule 2: "10 20" is an average, not an incomplete arithmetic expression
	if len(fields) > 1 {
		if values, ok := parseNumbers(fields); ok {
			return Request{Kind: KindAverage, Line: line, Values: values}
		}
	}

	// rule 3
	if len(fields) == 3 {
		a, okA := parseNumber(fields[0])
		b, okB := parseNumber(fields[2])
		if okA && okB {
			return Request{Kind: KindArithmetic, Line: line, Operand1: a, Operator: fields[1], Operand2: b}
		}
	}

	// rule 4
	if len(fields) == 1 {
		if n, err := strconv.ParseUint(fields[0], 10, 64); err == nil {
			return Request{Kind: KindFactorial, Line: line, N: n}
		}
		return invalid(line, ReasonFactorialInput)
	}

	return invalid(line, ReasonUnrecognized)
}

func invalid(line, reason string) Request {
	return Request{Kind: KindInvalid, Line: line, Reason: reason}
}

// cutRemind reports whether s is "remind" followed by whitespace and
// returns what follows the token
func cutRemind(s string) (string, bool) {
	if !strings.HasPrefix(s, remindToken) || len(s) == len(remindToken) {
		return "", false
	}
	rest := s[len(remindToken):]
	if !unicode.IsSpace(rune(rest[0])) {
		return "", false
	}
	return rest, true
}

// parseRemind parses "<seconds> <message...>" with a non-empty message
func parseRemind(line, rest string) Request {
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)

	idx := strings.IndexFunc(rest, unicode.IsSpace)
	if idx < 0 {
		return invalid(line, ReasonRemindFormat)
	}

	seconds, err := strconv.ParseUint(rest[:idx], 10, 64)
	if err != nil || seconds > MaxDelaySeconds {
		return invalid(line, ReasonRemindFormat)
	}

	message := strings.TrimLeftFunc(rest[idx:], unicode.IsSpace)
	if message == "" {
		return invalid(line, ReasonRemindFormat)
	}

	return Request{Kind: KindReminder, Line: line, DelaySeconds: seconds, Message: message}
}

func parseNumbers(fields []string) ([]float64, bool) {
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, ok := parseNumber(f)
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

// parseNumber accepts finite decimal numbers only ("inf", "nan" and
// out-of-range values are not numbers here)
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
