package assertions

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAssertion matches every error returned by Check.
var ErrAssertion = errors.New("assertion failed")

type Operator int

const (
	Equals Operator = iota
	NotEquals
	GreaterThan
	GreaterOrEqual
	LessThan
	LessOrEqual
	Contains
	NotContains
	StartsWith
	EndsWith
	Matches
	Exists
	NotExists
	Length
	Includes
	In
	Type
	Schema
	Each
)

var operatorNames = map[Operator]string{
	Equals:         "==",
	NotEquals:      "!=",
	GreaterThan:    ">",
	GreaterOrEqual: ">=",
	LessThan:       "<",
	LessOrEqual:    "<=",
	Contains:       "contains",
	NotContains:    "!contains",
	StartsWith:     "startsWith",
	EndsWith:       "endsWith",
	Matches:        "matches",
	Exists:         "exists",
	NotExists:      "!exists",
	Length:         "length",
	Includes:       "includes",
	In:             "in",
	Type:           "type",
	Schema:         "schema",
	Each:           "each",
}

func (o Operator) String() string {
	if s, ok := operatorNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Assertion is one check against a response subject.
type Assertion struct {
	Subject  string
	Operator Operator
	Expected any
}

// Expect builds an assertion.
func Expect(subject string, op Operator, expected any) *Assertion {
	return &Assertion{Subject: subject, Operator: op, Expected: expected}
}

// Status is shorthand for Expect("status", Equals, code).
func Status(code int) *Assertion {
	return Expect("status", Equals, code)
}

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

// Failure lists the assertions that did not pass.
type Failure struct {
	Results []*Result
}

func (f *Failure) Error() string {
	msgs := make([]string, 0, len(f.Results))
	for _, r := range f.Results {
		msgs = append(msgs, fmt.Sprintf("%s %s: %s", r.Subject, r.Operator, r.Message))
	}
	return fmt.Sprintf("%d assertion(s) failed: %s", len(f.Results), strings.Join(msgs, "; "))
}

func (f *Failure) Is(target error) bool { return target == ErrAssertion }
