package handler

import (
	"errors"
	"github.com/ValentinKolb/lsrv/lib/request"
	"strconv"
	"time"
)

// DefaultFactorialStep is the simulated cost of one factorial multiplication
const DefaultFactorialStep = 100 * time.Millisecond

// Domain and parse errors. Each one maps to a fixed reply text (see ReplyFor).
var (
	ErrDivisionByZero  = errors.New("division by zero")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrNoNumbers       = errors.New("no numbers provided")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidFormat   = errors.New("invalid request format")
	ErrInvalidRemind   = errors.New("invalid remind format")
)

// Reply texts written back to the client
const (
	ReplyDivisionByZero  = "Division by zero"
	ReplyUnknownOperator = "Unknown operator"
	ReplyNoNumbers       = "No numbers provided"
	ReplyInvalidInput    = "Invalid input"
	ReplyInvalidFormat   = "Invalid request format. Use: number op number"
	ReplyInvalidRemind   = "Invalid remind format. Use: remind N message"
	replyFactorialPrefix = "Factorial: "
)

// ReplyFor returns the reply text for an error returned by this package
func ReplyFor(err error) string {
	switch {
	case errors.Is(err, ErrDivisionByZero):
		return ReplyDivisionByZero
	case errors.Is(err, ErrUnknownOperator):
		return ReplyUnknownOperator
	case errors.Is(err, ErrNoNumbers):
		return ReplyNoNumbers
	case errors.Is(err, ErrInvalidInput):
		return ReplyInvalidInput
	case errors.Is(err, ErrInvalidRemind):
		return ReplyInvalidRemind
	default:
		return ReplyInvalidFormat
	}
}

// Reminder is the deferred part of a reminder request
type Reminder struct {
	Delay   time.Duration
	Message string
}

// Response is the outcome of one request
type Response struct {
	Text     string    // reply line without the trailing newline
	Err      error     // the error Text was derived from, nil on success
	Reminder *Reminder // set for reminder requests, Text is then the acknowledgment
}

// Handler executes parsed requests
type Handler struct {
	// FactorialStep is how long the executing goroutine is occupied per
	// factorial multiplication. Zero disables the simulated work.
	FactorialStep time.Duration
}

// New creates a handler with the given factorial step
func New(factorialStep time.Duration) *Handler {
	return &Handler{FactorialStep: factorialStep}
}

// Handle runs the handler matching req.Kind. It blocks for factorial
// requests (see Factorial) and returns immediately for all others; reminder
// requests only produce the acknowledgment plus the Reminder to schedule.
func (h *Handler) Handle(req request.Request) Response {
	switch req.Kind {
	case request.KindArithmetic:
		return respond(Arithmetic(req.Operand1, req.Operator, req.Operand2))
	case request.KindAverage:
		return respond(Average(req.Values))
	case request.KindFactorial:
		return Response{Text: h.Factorial(req.N)}
	case request.KindReminder:
		return Response{
			Text: ReminderAck(req.DelaySeconds),
			Reminder: &Reminder{
				Delay:   time.Duration(req.DelaySeconds) * time.Second,
				Message: req.Message,
			},
		}
	default:
		err := invalidError(req.Reason)
		return Response{Text: ReplyFor(err), Err: err}
	}
}

func respond(text string, err error) Response {
	if err != nil {
		return Response{Text: ReplyFor(err), Err: err}
	}
	return Response{Text: text}
}

func invalidError(reason string) error {
	switch reason {
	case request.ReasonRemindFormat:
		return ErrInvalidRemind
	case request.ReasonFactorialInput:
		return ErrInvalidInput
	default:
		return ErrInvalidFormat
	}
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

// Arithmetic evaluates "a op b". Division is formatted with two decimals,
// everything else with the shortest general format (6 significant digits).
func Arithmetic(a float64, op string, b float64) (string, error) {
	var result float64
	switch op {
	case "+":
		result = a + b
	case "-":
		result = a - b
	case "*":
		result = a * b
	case "/":
		if b == 0 {
			return "", ErrDivisionByZero
		}
		return strconv.FormatFloat(a/b, 'f', 2, 64), nil
	default:
		return "", ErrUnknownOperator
	}
	return strconv.FormatFloat(result, 'g', 6, 64), nil
}

// Average returns the arithmetic mean with two decimals
func Average(values []float64) (string, error) {
	if len(values) == 0 {
		return "", ErrNoNumbers
	}

	// running mean, a plain sum overflows for large finite values
	var mean float64
	for i, v := range values {
		mean += (v - mean) / float64(i+1)
	}
	return strconv.FormatFloat(mean, 'f', 2, 64), nil
}

// Factorial computes n! and occupies the calling goroutine for
// n * FactorialStep while doing so. The result wraps silently for n > 20,
// see FactorialValue.
func (h *Handler) Factorial(n uint64) string {
	if h.FactorialStep > 0 {
		for i := uint64(1); i <= n; i++ {
			time.Sleep(h.FactorialStep)
		}
	}
	return replyFactorialPrefix + strconv.FormatUint(FactorialValue(n), 10)
}

// FactorialValue computes n! in a uint64 with wraparound
func FactorialValue(n uint64) uint64 {
	var result uint64 = 1
	for i := uint64(2); i <= n; i++ {
		result *= i
		// from 66! on the product holds 2^64 as a factor
		if result == 0 {
			break
		}
	}
	return result
}

// ReminderAck is the immediate reply to a reminder request
func ReminderAck(delaySeconds uint64) string {
	return "Reminder set for " + strconv.FormatUint(delaySeconds, 10) + " seconds"
}
