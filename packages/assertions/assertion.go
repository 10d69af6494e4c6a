package assertions

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operator names a comparison. The zero value is OpEquals.
type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpExists
	OpNotExists
	OpLength
	OpIncludes
	OpNotIncludes
	OpIn
	OpNotIn
	OpType
	OpSchema
	OpEach
)

var operatorNames = map[Operator]string{
	OpEquals:         "==",
	OpNotEquals:      "!=",
	OpGreaterThan:    ">",
	OpGreaterOrEqual: ">=",
	OpLessThan:       "<",
	OpLessOrEqual:    "<=",
	OpContains:       "contains",
	OpNotContains:    "!contains",
	OpStartsWith:     "startsWith",
	OpEndsWith:       "endsWith",
	OpMatches:        "matches",
	OpExists:         "exists",
	OpNotExists:      "!exists",
	OpLength:         "length",
	OpIncludes:       "includes",
	OpNotIncludes:    "!includes",
	OpIn:             "in",
	OpNotIn:          "!in",
	OpType:           "type",
	OpSchema:         "schema",
	OpEach:           "each",
}

var operatorsByName = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames)+2)
	for op, name := range operatorNames {
		m[name] = op
	}
	m["equals"] = OpEquals
	m["notEquals"] = OpNotEquals
	return m
}()

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// ParseOperator looks an operator up by name
func ParseOperator(s string) (Operator, error) {
	if op, ok := operatorsByName[s]; ok {
		return op, nil
	}
	return OpEquals, fmt.Errorf("unknown operator: %s", s)
}

// takesNoValue lists operators that are complete without an expected value
func (o Operator) takesNoValue() bool {
	return o == OpExists || o == OpNotExists
}

// Assertion is one expectation on a response
type Assertion struct {
	Subject  string
	Operator Operator
	Expected any
}

func (a Assertion) String() string {
	if a.Operator.takesNoValue() {
		return a.Subject + " " + a.Operator.String()
	}
	return fmt.Sprintf("%s %s %v", a.Subject, a.Operator, a.Expected)
}

// Parse reads an assertion written as "<subject> <operator> [value]".
// Subjects of the form "header <name>" and "jsonpath <path>" take two
// words. The value is decoded as JSON when possible and kept as a string
// otherwise, so `body.id == 42` compares a number and `body.name == Ada`
// a string.
func Parse(line string) (Assertion, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Assertion{}, fmt.Errorf("invalid assertion %q: want <subject> <operator> [value]", line)
	}

	subjectWords := 1
	if fields[0] == "header" || fields[0] == "jsonpath" {
		subjectWords = 2
	}
	if len(fields) < subjectWords+1 {
		return Assertion{}, fmt.Errorf("invalid assertion %q: missing operator", line)
	}

	a := Assertion{Subject: strings.Join(fields[:subjectWords], " ")}
	op, err := ParseOperator(fields[subjectWords])
	if err != nil {
		return Assertion{}, fmt.Errorf("invalid assertion %q: %w", line, err)
	}
	a.Operator = op

	// Keep the raw value text, including inner spacing
	rest := strings.TrimSpace(line)
	for _, f := range fields[:subjectWords+1] {
		rest = strings.TrimSpace(strings.TrimPrefix(rest, f))
	}

	if rest == "" {
		if !op.takesNoValue() {
			return Assertion{}, fmt.Errorf("invalid assertion %q: missing value", line)
		}
		return a, nil
	}
	a.Expected = parseValue(rest)
	return a, nil
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
