package assertions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

func createResponse(code int, body string) http.Response {
	return http.Response{
		Status:        http.StatusCompleted,
		ResponseCode:  code,
		ContentType:   "application/json",
		ContentLength: len(body),
		Server:        "nginx",
		Body:          body,
		Duration:      100 * time.Millisecond,
	}
}

func TestEvaluator_StatusCode(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{}`))

	result := e.Evaluate(Assertion{Subject: "status", Operator: OpEquals, Expected: 200})

	assert.True(t, result.Passed)
	assert.Equal(t, 200, result.Actual)
	assert.Equal(t, "==", result.Operator)
}

func TestEvaluator_StatusCodeNotEquals(t *testing.T) {
	e := NewEvaluator(createResponse(404, `{}`))

	result := e.Evaluate(Assertion{Subject: "status", Operator: OpNotEquals, Expected: 200})
	assert.True(t, result.Passed)

	result = e.Evaluate(Assertion{Subject: "status", Operator: OpNotEquals, Expected: 404})
	assert.False(t, result.Passed)
	assert.Equal(t, "expected not to equal 404", result.Message)
}

func TestEvaluator_Body_JSONPath(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"user": {"name": "John", "age": 30}}`))

	tests := []struct {
		name     string
		subject  string
		operator Operator
		expected any
		passed   bool
	}{
		{"nested path equals", "body.user.name", OpEquals, "John", true},
		{"nested path numeric", "body.user.age", OpEquals, 30, true},
		{"greater than", "body.user.age", OpGreaterThan, 25, true},
		{"greater or equal", "body.user.age", OpGreaterOrEqual, 30, true},
		{"less than", "body.user.age", OpLessThan, 35, true},
		{"less or equal fails", "body.user.age", OpLessOrEqual, 29, false},
		{"bare subject is a body path", "user.name", OpEquals, "John", true},
		{"starts with", "body.user.name", OpStartsWith, "Jo", true},
		{"ends with", "body.user.name", OpEndsWith, "hn", true},
		{"matches", "body.user.name", OpMatches, "/^J[a-z]+$/", true},
		{"contains", "body.user.name", OpContains, "oh", true},
		{"not contains", "body.user.name", OpNotContains, "x", true},
		{"exists", "body.user", OpExists, nil, true},
		{"missing exists", "body.user.email", OpExists, nil, false},
		{"not exists", "body.user.email", OpNotExists, nil, true},
		{"in", "body.user.age", OpIn, []any{10.0, 30.0}, true},
		{"not in", "body.user.age", OpNotIn, []any{1.0}, true},
		{"type object", "body.user", OpType, "object", true},
		{"type string", "body.user.name", OpType, "string", true},
		{"type mismatch", "body.user.age", OpType, "string", false},
		{"non-numeric compare", "body.user.name", OpGreaterThan, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(Assertion{Subject: tt.subject, Operator: tt.operator, Expected: tt.expected})
			assert.Equal(t, tt.passed, result.Passed, "Message: %s", result.Message)
		})
	}
}

func TestEvaluator_Body_Array(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"items": [1, 2, 3, 4, 5], "tags": [{"n": "a"}, {"n": "b"}]}`))

	result := e.Evaluate(Assertion{Subject: "body.items", Operator: OpLength, Expected: 5})
	assert.True(t, result.Passed, result.Message)
	assert.Equal(t, 5, result.Actual)

	result = e.Evaluate(Assertion{Subject: "body.items", Operator: OpIncludes, Expected: 3})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "body.items", Operator: OpNotIncludes, Expected: 9})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "body.items[0]", Operator: OpEquals, Expected: 1})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "jsonpath tags[1].n", Operator: OpEquals, Expected: "b"})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "body.items", Operator: OpType, Expected: "array"})
	assert.True(t, result.Passed, result.Message)
}

func TestEvaluator_Each(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"items": [2, 4, 6], "flags": [true, true], "empty": []}`))

	result := e.Evaluate(Assertion{Subject: "body.items", Operator: OpEach, Expected: map[string]any{"operator": ">", "value": 1}})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "body.items", Operator: OpEach, Expected: map[string]any{"operator": "<", "value": 5}})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "item[2]")

	result = e.Evaluate(Assertion{Subject: "body.flags", Operator: OpEach, Expected: true})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "body.empty", Operator: OpEach, Expected: 1})
	assert.True(t, result.Passed)

	result = e.Evaluate(Assertion{Subject: "body.items", Operator: OpEach, Expected: map[string]any{"operator": "each", "value": 1}})
	assert.False(t, result.Passed)
}

func TestEvaluator_Headers(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"a":1}`))

	result := e.Evaluate(Assertion{Subject: "header Content-Type", Operator: OpContains, Expected: "json"})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "header content-length", Operator: OpEquals, Expected: 7})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "header Server", Operator: OpEquals, Expected: "nginx"})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "header X-Request-Id", Operator: OpExists})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "not captured")
}

func TestEvaluator_OutcomeAndDuration(t *testing.T) {
	e := NewEvaluator(http.Response{Status: http.StatusNoResponse, Duration: 61 * time.Second})

	result := e.Evaluate(Assertion{Subject: "outcome", Operator: OpEquals, Expected: "NoResponse"})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "duration", Operator: OpGreaterThan, Expected: 60000})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "status", Operator: OpEquals, Expected: 0})
	assert.True(t, result.Passed, result.Message)
}

func TestEvaluator_PlainTextBody(t *testing.T) {
	resp := createResponse(200, "hello world")
	resp.ContentType = "text/plain"
	e := NewEvaluator(resp)

	result := e.Evaluate(Assertion{Subject: "body", Operator: OpContains, Expected: "world"})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "body", Operator: OpLength, Expected: 11})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "jsonpath id", Operator: OpExists})
	assert.False(t, result.Passed)
	assert.Equal(t, "response body is not JSON", result.Message)
}

const userSchema = `{
	"type": "object",
	"required": ["id", "name"],
	"properties": {
		"id": {"type": "integer"},
		"name": {"type": "string"}
	}
}`

func TestEvaluator_SchemaInline(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"id": 1, "name": "Ada"}`))

	result := e.Evaluate(Assertion{Subject: "body", Operator: OpSchema, Expected: userSchema})
	assert.True(t, result.Passed, result.Message)

	bad := NewEvaluator(createResponse(200, `{"id": "one"}`))
	result = bad.Evaluate(Assertion{Subject: "body", Operator: OpSchema, Expected: userSchema})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "schema validation failed")
}

func TestEvaluator_SchemaObject(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"id": 1, "name": "Ada"}`))
	schema := map[string]any{"type": "object", "required": []any{"id"}}

	result := e.Evaluate(Assertion{Subject: "body", Operator: OpSchema, Expected: schema})
	assert.True(t, result.Passed, result.Message)
}

func TestEvaluator_SchemaFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.json"), []byte(userSchema), 0644))

	e := NewEvaluatorWithBaseDir(createResponse(200, `{"id": 1, "name": "Ada"}`), dir)

	result := e.Evaluate(Assertion{Subject: "body", Operator: OpSchema, Expected: "user.json"})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(Assertion{Subject: "body", Operator: OpSchema, Expected: "../outside.json"})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "path traversal")

	result = e.Evaluate(Assertion{Subject: "body", Operator: OpSchema, Expected: "missing.json"})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "failed to read schema file")
}

func TestEvaluateAll(t *testing.T) {
	resp := createResponse(201, `{"id": 7}`)

	results := EvaluateAll(resp, []Assertion{
		{Subject: "status", Operator: OpEquals, Expected: 201},
		{Subject: "body.id", Operator: OpEquals, Expected: 7},
	}, "")
	require.Len(t, results, 2)
	assert.True(t, AllPassed(results))

	results = EvaluateAll(resp, []Assertion{
		{Subject: "status", Operator: OpEquals, Expected: 200},
	}, "")
	assert.False(t, AllPassed(results))
	assert.Equal(t, "expected 200, got 201", results[0].Message)
}

func TestConvertBracketNotation(t *testing.T) {
	assert.Equal(t, "0.id", convertBracketNotation("[0].id"))
	assert.Equal(t, "items.0.tags.1", convertBracketNotation("items[0].tags[1]"))
	assert.Equal(t, "plain.path", convertBracketNotation("plain.path"))
}
