package recordsvc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/rzbill/pubrt/internal/buffer"
)

// celFilter wraps a compiled CEL program. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("position", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("size", cel.IntType),
		// parsed record object for field filtering
		cel.Variable("json", cel.DynType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	switch ast.OutputType().Kind() {
	case types.BoolKind, types.DynKind:
	default:
		return celFilter{}, fmt.Errorf("expression yields %s, want bool", ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval reports whether e passes the filter. Evaluation errors, such as a
// missing field, reject the record.
func (f celFilter) Eval(e buffer.Entry) bool {
	if !f.enabled {
		return true
	}
	var obj any
	_ = json.Unmarshal(e.Record, &obj)
	out, _, err := f.prog.Eval(map[string]any{
		"position": int64(e.Position),
		"ts_ms":    e.IngestedAt.UnixMilli(),
		"size":     int64(len(e.Record)),
		"json":     obj,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
