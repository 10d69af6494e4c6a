package env

import (
	"encoding/base64"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type builtinFunc func(args []string) (any, bool)

var builtins = map[string]builtinFunc{
	"uuid": func([]string) (any, bool) {
		return uuid.NewString(), true
	},
	"timestamp": func([]string) (any, bool) {
		return time.Now().Unix(), true
	},
	"timestampMs": func([]string) (any, bool) {
		return time.Now().UnixMilli(), true
	},
	"randomInt": func(args []string) (any, bool) {
		lo, hi := 0, 1000
		if len(args) == 2 {
			var err1, err2 error
			lo, err1 = strconv.Atoi(args[0])
			hi, err2 = strconv.Atoi(args[1])
			if err1 != nil || err2 != nil || hi < lo {
				return nil, false
			}
		}
		return lo + rand.IntN(hi-lo+1), true
	},
	"base64": func(args []string) (any, bool) {
		if len(args) != 1 {
			return nil, false
		}
		return base64.StdEncoding.EncodeToString([]byte(args[0])), true
	},
}

// callBuiltin evaluates "name(arg, ...)". Arguments are split on commas and
// may be quoted.
func callBuiltin(expr string) (any, bool) {
	name, rest, ok := strings.Cut(expr, "(")
	if !ok || !strings.HasSuffix(rest, ")") {
		return nil, false
	}
	fn, ok := builtins[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}

	var args []string
	if inner := strings.TrimSpace(strings.TrimSuffix(rest, ")")); inner != "" {
		for _, a := range strings.Split(inner, ",") {
			args = append(args, strings.Trim(strings.TrimSpace(a), `"'`))
		}
	}
	return fn(args)
}
