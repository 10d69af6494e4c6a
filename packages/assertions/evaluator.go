package assertions

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

type Evaluator struct {
	response http.Response
	bodyJSON gjson.Result
	baseDir  string // for resolving schema file paths
}

func NewEvaluator(resp http.Response) *Evaluator {
	return NewEvaluatorWithBaseDir(resp, "")
}

func NewEvaluatorWithBaseDir(resp http.Response, baseDir string) *Evaluator {
	e := &Evaluator{
		response: resp,
		baseDir:  baseDir,
	}
	if gjson.Valid(resp.Body) {
		e.bodyJSON = gjson.Parse(resp.Body)
	}
	return e
}

func (e *Evaluator) Evaluate(a Assertion) *Result {
	result := &Result{
		Subject:  a.Subject,
		Operator: a.Operator.String(),
		Expected: a.Expected,
	}

	actual, err := e.actualValue(a.Subject)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	result.Actual = actual

	result.Passed, result.Message = e.compare(actual, a.Operator, a.Expected)

	if n, ok := sizeOf(actual); ok && a.Operator == OpLength {
		result.Actual = n
	}

	return result
}

func (e *Evaluator) actualValue(subject string) (any, error) {
	switch {
	case subject == "status":
		return e.response.ResponseCode, nil
	case subject == "duration":
		return e.response.DurationMs(), nil
	case subject == "outcome":
		return e.response.Status.String(), nil
	case strings.HasPrefix(subject, "header"):
		return e.header(strings.TrimSpace(strings.TrimPrefix(subject, "header")))
	case strings.HasPrefix(subject, "body"):
		return e.bodyValue(subject), nil
	case strings.HasPrefix(subject, "jsonpath"):
		return e.jsonPathValue(strings.TrimSpace(strings.TrimPrefix(subject, "jsonpath")))
	default:
		return e.bodyValue("body." + subject), nil
	}
}

// header returns one of the response headers the engine extracts
func (e *Evaluator) header(name string) (any, error) {
	switch strings.ToLower(name) {
	case "content-type":
		return e.response.ContentType, nil
	case "content-length":
		return e.response.ContentLength, nil
	case "server":
		return e.response.Server, nil
	case "":
		return nil, fmt.Errorf("header assertion needs a header name")
	default:
		return nil, fmt.Errorf("header %s is not captured; only Content-Type, Content-Length and Server are", name)
	}
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	return strings.TrimPrefix(bracketIndex.ReplaceAllString(path, ".$1"), ".")
}

func (e *Evaluator) bodyValue(subject string) any {
	if !e.bodyJSON.Exists() {
		return e.response.Body
	}

	path := strings.TrimPrefix(subject, "body")
	if path == "" {
		return e.bodyJSON.Value()
	}
	path = convertBracketNotation(strings.TrimPrefix(path, "."))

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil
	}
	return result.Value()
}

func (e *Evaluator) jsonPathValue(path string) (any, error) {
	if !e.bodyJSON.Exists() {
		return nil, fmt.Errorf("response body is not JSON")
	}
	result := e.bodyJSON.Get(convertBracketNotation(path))
	if !result.Exists() {
		return nil, nil
	}
	return result.Value(), nil
}

func (e *Evaluator) compare(actual any, op Operator, expected any) (bool, string) {
	switch op {
	case OpEquals:
		return equals(actual, expected)
	case OpNotEquals:
		passed, _ := equals(actual, expected)
		return negated(passed, fmt.Sprintf("expected not to equal %v", expected))
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return compareNumeric(actual, op, expected)
	case OpContains:
		return stringTest(actual, expected, strings.Contains, "contain")
	case OpNotContains:
		passed, _ := stringTest(actual, expected, strings.Contains, "contain")
		return negated(passed, fmt.Sprintf("expected not to contain %v", expected))
	case OpStartsWith:
		return stringTest(actual, expected, strings.HasPrefix, "start with")
	case OpEndsWith:
		return stringTest(actual, expected, strings.HasSuffix, "end with")
	case OpMatches:
		return matches(actual, expected)
	case OpExists:
		if actual == nil {
			return false, "expected to exist"
		}
		return true, ""
	case OpNotExists:
		return negated(actual != nil, "expected not to exist")
	case OpLength:
		return length(actual, expected)
	case OpIncludes:
		return memberOf(expected, actual, "expected array to include %v")
	case OpNotIncludes:
		passed, _ := memberOf(expected, actual, "")
		return negated(passed, fmt.Sprintf("expected not to include %v", expected))
	case OpIn:
		return memberOf(actual, expected, "expected %v to be in the list")
	case OpNotIn:
		passed, _ := memberOf(actual, expected, "")
		return negated(passed, fmt.Sprintf("expected not to be in %v", expected))
	case OpType:
		if got, want := jsonType(actual), fmt.Sprint(expected); got != want {
			return false, fmt.Sprintf("expected type %s, got %s", want, got)
		}
		return true, ""
	case OpSchema:
		return e.schema(actual, expected)
	case OpEach:
		return e.each(actual, expected)
	default:
		return false, fmt.Sprintf("unknown operator: %v", op)
	}
}

func negated(passed bool, msg string) (bool, string) {
	if passed {
		return false, msg
	}
	return true, ""
}

// equals compares deeply, then numerically, then by printed form, so that
// a JSON 200.0 equals the status 200 and "42" equals 42
func equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}
	a, aok := toFloat64(actual)
	b, bok := toFloat64(expected)
	if (aok && bok && a == b) || fmt.Sprint(actual) == fmt.Sprint(expected) {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func compareNumeric(actual any, op Operator, expected any) (bool, string) {
	a, aok := toFloat64(actual)
	b, bok := toFloat64(expected)
	if !aok || !bok {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	c := cmp.Compare(a, b)
	var passed bool
	switch op {
	case OpGreaterThan:
		passed = c > 0
	case OpGreaterOrEqual:
		passed = c >= 0
	case OpLessThan:
		passed = c < 0
	case OpLessOrEqual:
		passed = c <= 0
	}
	if !passed {
		return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
	}
	return true, ""
}

func stringTest(actual, expected any, test func(s, sub string) bool, verb string) (bool, string) {
	if test(fmt.Sprint(actual), fmt.Sprint(expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to %s '%v'", actual, verb, expected)
}

// matches accepts the pattern bare or wrapped in slashes
func matches(actual, expected any) (bool, string) {
	pattern := strings.TrimSuffix(strings.TrimPrefix(fmt.Sprint(expected), "/"), "/")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}
	if !re.MatchString(fmt.Sprint(actual)) {
		return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
	}
	return true, ""
}

func length(actual, expected any) (bool, string) {
	want, ok := toInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}

	got, ok := sizeOf(actual)
	if !ok {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}

	if got != want {
		return false, fmt.Sprintf("expected length %d, got %d", want, got)
	}
	return true, ""
}

func sizeOf(v any) (int, bool) {
	switch v := v.(type) {
	case string:
		return len(v), true
	case []any:
		return len(v), true
	case map[string]any:
		return len(v), true
	}
	return 0, false
}

// memberOf reports whether item equals an element of list, which must be
// a JSON array
func memberOf(item, list any, failure string) (bool, string) {
	arr, ok := list.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", list)
	}
	for _, el := range arr {
		if passed, _ := equals(el, item); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf(failure, item)
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return reflect.TypeOf(v).String()
	}
}

// schema validates actual against a JSON schema given inline (an object) or
// as a file path
func (e *Evaluator) schema(actual, expected any) (bool, string) {
	schemaData, err := e.loadSchema(expected)
	if err != nil {
		return false, err.Error()
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		return false, fmt.Sprintf("failed to marshal actual value: %v", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(actualJSON),
	)
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}

	if result.Valid() {
		return true, ""
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(errs, "; "))
}

func (e *Evaluator) loadSchema(expected any) ([]byte, error) {
	switch v := expected.(type) {
	case map[string]any:
		return json.Marshal(v)
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "{") {
			return []byte(v), nil
		}
		path := v
		if !filepath.IsAbs(path) && e.baseDir != "" {
			path = filepath.Join(e.baseDir, path)
		}
		if err := validatePathWithinBase(path, e.baseDir); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %v", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("schema must be a JSON object or a file path, got %T", expected)
	}
}

// validatePathWithinBase rejects paths that resolve outside baseDir
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}
	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}
	return nil
}

// each applies expected to every element. expected is either a plain value
// compared for equality or {"operator": ..., "value": ...}.
func (e *Evaluator) each(actual, expected any) (bool, string) {
	arr, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array for 'each' operator, got %T", actual)
	}

	op := OpEquals
	value := expected
	if m, isMap := expected.(map[string]any); isMap {
		rawOp, hasOp := m["operator"]
		rawValue, hasValue := m["value"]
		if hasOp && hasValue {
			parsed, err := ParseOperator(fmt.Sprint(rawOp))
			if err != nil {
				return false, err.Error()
			}
			if parsed == OpEach {
				return false, "each cannot be nested"
			}
			op, value = parsed, rawValue
		}
	}

	for i, item := range arr {
		if passed, msg := e.compare(item, op, value); !passed {
			return false, fmt.Sprintf("item[%d]: %s", i, msg)
		}
	}
	return true, ""
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	f, ok := toFloat64(v)
	return int(f), ok
}

// EvaluateAll runs every assertion against resp
func EvaluateAll(resp http.Response, assertions []Assertion, baseDir string) []*Result {
	e := NewEvaluatorWithBaseDir(resp, baseDir)
	results := make([]*Result, len(assertions))
	for i, a := range assertions {
		results[i] = e.Evaluate(a)
	}
	return results
}

// AllPassed reports whether every result passed
func AllPassed(results []*Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
