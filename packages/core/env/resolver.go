package env

import (
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"
)

var templatePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc receives a printf-style message for every template Resolve
// leaves in place
type WarnFunc func(format string, args ...any)

// Resolver expands {{...}} templates. Captures shadow variables of the same
// name. It is safe for concurrent use.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]any
	captures  map[string]any
	lookupEnv func(string) (string, bool)
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		captures:  make(map[string]any),
		lookupEnv: os.LookupEnv,
	}
}

func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	r.warnFunc = fn
	r.mu.Unlock()
}

func (r *Resolver) SetVariables(vars map[string]any) {
	r.mu.Lock()
	maps.Copy(r.variables, vars)
	r.mu.Unlock()
}

func (r *Resolver) SetVariable(name string, value any) {
	r.mu.Lock()
	r.variables[name] = value
	r.mu.Unlock()
}

// SetCapture stores a captured value under both "request.name" and "name".
// requestName may be empty.
func (r *Resolver) SetCapture(requestName, captureName string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if requestName != "" {
		r.captures[requestName+"."+captureName] = value
	}
	r.captures[captureName] = value
}

// Lookup returns the value of a capture or variable
func (r *Resolver) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.captures[name]; ok {
		return v, true
	}
	v, ok := r.variables[name]
	return v, ok
}

// expand evaluates one template expression. On failure it returns the
// warning to report instead.
func (r *Resolver) expand(expr string) (string, string, bool) {
	if name, ok := strings.CutPrefix(expr, "$"); ok {
		if v, found := r.lookupEnv(name); found {
			return v, "", true
		}
		return "", "unresolved environment variable: $%s", false
	}
	if strings.Contains(expr, "(") {
		if v, ok := callBuiltin(expr); ok {
			return fmt.Sprint(v), "", true
		}
		return "", "unresolved function call: %s", false
	}
	if v, ok := r.Lookup(expr); ok {
		return fmt.Sprint(v), "", true
	}
	return "", "unresolved variable: %s", false
}

// Resolve replaces every template in input. Templates that cannot be
// resolved are kept verbatim and reported to the warn func.
func (r *Resolver) Resolve(input string) string {
	r.mu.RLock()
	warn := r.warnFunc
	r.mu.RUnlock()

	return templatePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		v, msg, ok := r.expand(expr)
		if ok {
			return v
		}
		if warn != nil {
			warn(msg, strings.TrimPrefix(expr, "$"))
		}
		return match
	})
}

func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = r.Resolve(v)
	}
	return out
}

// Unresolved lists, sorted and without duplicates, the template expressions
// in input that Resolve would leave in place
func (r *Resolver) Unresolved(input string) []string {
	missing := make(map[string]struct{})
	for _, m := range templatePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if _, _, ok := r.expand(expr); !ok {
			missing[expr] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(missing))
}

// Clone copies variables and captures so that a run can capture values
// without touching the receiver
func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Resolver{
		variables: maps.Clone(r.variables),
		captures:  maps.Clone(r.captures),
		lookupEnv: r.lookupEnv,
		warnFunc:  r.warnFunc,
	}
}
