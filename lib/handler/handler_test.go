package handler

import (
	"errors"
	"github.com/ValentinKolb/lsrv/lib/request"
	"strconv"
	"testing"
	"time"
)

func TestArithmetic(t *testing.T) {
	tests := []struct {
		a, b    float64
		op      string
		want    string
		wantErr error
	}{
		{5, 7, "*", "35", nil},
		{2, 3, "+", "5", nil},
		{2, 3.5, "-", "-1.5", nil},
		{0.1, 0.2, "+", "0.3", nil},
		{1e6, 10, "*", "1e+07", nil},
		{10, 4, "/", "2.50", nil},
		{1, 3, "/", "0.33", nil},
		{-7, 2, "/", "-3.50", nil},
		{10, 0, "/", "", ErrDivisionByZero},
		{0, 0, "/", "", ErrDivisionByZero},
		{3, 2, "%", "", ErrUnknownOperator},
		{3, 2, "**", "", ErrUnknownOperator},
	}

	for _, tt := range tests {
		got, err := Arithmetic(tt.a, tt.op, tt.b)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Arithmetic(%v %s %v) error = %v, want %v", tt.a, tt.op, tt.b, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Arithmetic(%v %s %v) = %q, want %q", tt.a, tt.op, tt.b, got, tt.want)
		}
	}
}

func TestAverage(t *testing.T) {
	tests := []struct {
		values  []float64
		want    string
		wantErr error
	}{
		{[]float64{10, 20, 30}, "20.00", nil},
		{[]float64{10, 20}, "15.00", nil},
		{[]float64{1, 2}, "1.50", nil},
		{[]float64{1, 1, 2}, "1.33", nil},
		{[]float64{-4, 4}, "0.00", nil},
		// the sum overflows, the mean does not
		{[]float64{1e308, 1e308}, strconv.FormatFloat(1e308, 'f', 2, 64), nil},
		{[]float64{1.7e308, 1.7e308, 1.7e308}, strconv.FormatFloat(1.7e308, 'f', 2, 64), nil},
		{nil, "", ErrNoNumbers},
		{[]float64{}, "", ErrNoNumbers},
	}

	for _, tt := range tests {
		got, err := Average(tt.values)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Average(%v) error = %v, want %v", tt.values, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Average(%v) = %q, want %q", tt.values, got, tt.want)
		}
	}
}

func TestFactorialValue(t *testing.T) {
	tests := []struct {
		n    uint64
		want uint64
	}{
		{0, 1},
		{1, 1},
		{5, 120},
		{10, 3628800},
		{20, 2432902008176640000},
		// 21! wraps around 2^64
		{21, 14197454024290336768},
		// from 66 on the product contains 2^64 as a factor
		{66, 0},
		{1 << 62, 0},
	}

	for _, tt := range tests {
		if got := FactorialValue(tt.n); got != tt.want {
			t.Errorf("FactorialValue(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

// TestFactorialOccupiesCaller verifies the simulated work takes n steps
func TestFactorialOccupiesCaller(t *testing.T) {
	h := New(10 * time.Millisecond)

	start := time.Now()
	got := h.Factorial(5)
	elapsed := time.Since(start)

	if got != "Factorial: 120" {
		t.Errorf("Factorial(5) = %q", got)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("Factorial(5) returned after %s, expected at least 5 steps of 10ms", elapsed)
	}
}

func TestFactorialNoStep(t *testing.T) {
	h := New(0)
	if got := h.Factorial(0); got != "Factorial: 1" {
		t.Errorf("Factorial(0) = %q", got)
	}
	if got := h.Factorial(21); got != "Factorial: 14197454024290336768" {
		t.Errorf("Factorial(21) = %q", got)
	}
	for _, n := range []uint64{5, 20, 21, 66} {
		if got, want := h.Factorial(n), "Factorial: "+strconv.FormatUint(FactorialValue(n), 10); got != want {
			t.Errorf("Factorial(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestHandle(t *testing.T) {
	h := New(0)

	tests := []struct {
		line    string
		want    string
		wantErr error
	}{
		{"5 * 7", "35", nil},
		{"10 / 4", "2.50", nil},
		{"10 / 0", ReplyDivisionByZero, ErrDivisionByZero},
		{"3 ^ 2", ReplyUnknownOperator, ErrUnknownOperator},
		{"10 20 30", "20.00", nil},
		{"5", "Factorial: 120", nil},
		{"-5", ReplyInvalidInput, ErrInvalidInput},
		{"abc", ReplyInvalidInput, ErrInvalidInput},
		{"hello world", ReplyInvalidFormat, ErrInvalidFormat},
		{"remind x y", ReplyInvalidRemind, ErrInvalidRemind},
	}

	for _, tt := range tests {
		resp := h.Handle(request.Parse(tt.line))
		if resp.Text != tt.want {
			t.Errorf("Handle(%q).Text = %q, want %q", tt.line, resp.Text, tt.want)
		}
		if !errors.Is(resp.Err, tt.wantErr) {
			t.Errorf("Handle(%q).Err = %v, want %v", tt.line, resp.Err, tt.wantErr)
		}
		if resp.Reminder != nil {
			t.Errorf("Handle(%q) must not schedule a reminder", tt.line)
		}
	}
}

func TestHandleReminder(t *testing.T) {
	resp := New(0).Handle(request.Parse("remind 2 Wake up!"))

	if resp.Err != nil {
		t.Fatalf("Unexpected error: %v", resp.Err)
	}
	if resp.Text != "Reminder set for 2 seconds" {
		t.Errorf("Unexpected acknowledgment %q", resp.Text)
	}
	if resp.Reminder == nil {
		t.Fatal("Reminder request must schedule a reminder")
	}
	if resp.Reminder.Delay != 2*time.Second || resp.Reminder.Message != "Wake up!" {
		t.Errorf("Unexpected reminder %+v", *resp.Reminder)
	}
}

func TestReplyForWrapped(t *testing.T) {
	err := errors.Join(errors.New("context"), ErrNoNumbers)
	if got := ReplyFor(err); got != ReplyNoNumbers {
		t.Errorf("ReplyFor(wrapped) = %q, want %q", got, ReplyNoNumbers)
	}
}
