package template

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// tokenPattern matches one {expression} placeholder. Nested braces are not
// part of the grammar; a brace-bearing literal simply fails evaluation and
// stays verbatim.
var tokenPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// resolveTokens substitutes every placeholder token in s, leaving failed
// tokens untouched and continuing with the rest.
func resolveTokens(s string, vars map[string]cty.Value) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		expression := token[1 : len(token)-1]
		out, err := evalExpression(expression, vars)
		if err != nil {
			return token
		}
		return out
	})
}

// evalExpression parses and evaluates one expression against the context
// variables. The evaluation context carries no functions, so the reachable
// grammar is literals, variable lookups/indexing and arithmetic only.
func evalExpression(src string, vars map[string]cty.Value) (string, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "placeholder", hcl.InitialPos)
	if diags.HasErrors() {
		return "", diags
	}
	val, diags := expr.Value(&hcl.EvalContext{Variables: vars})
	if diags.HasErrors() {
		return "", diags
	}
	return stringify(val)
}

// variables converts the context's entries into cty values for evaluation.
// Entries that cannot be represented are skipped; a reference to a skipped
// key then fails softly at evaluation time.
func (c *Context) variables() map[string]cty.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()

	vars := make(map[string]cty.Value, len(c.values))
	for k, v := range c.values {
		val, err := toCty(v)
		if err != nil {
			continue
		}
		vars[k] = val
	}
	return vars
}

func toCty(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int32:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case float32:
		return cty.NumberFloatVal(float64(x)), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(x))
		for i, item := range x {
			val, err := toCty(item)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = val
		}
		return cty.TupleVal(elems), nil
	case []string:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(x))
		for i, item := range x {
			elems[i] = cty.StringVal(item)
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(x) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(x))
		for k, item := range x {
			val, err := toCty(item)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = val
		}
		return cty.ObjectVal(attrs), nil
	default:
		ty, err := gocty.ImpliedType(v)
		if err != nil {
			return cty.NilVal, fmt.Errorf("unable to infer cty type: %w", err)
		}
		return gocty.ToCtyValue(v, ty)
	}
}

// stringify renders an evaluation result the way a prompt expects to see it.
// Compound values fall back to their JSON encoding.
func stringify(val cty.Value) (string, error) {
	if val.IsNull() || !val.IsKnown() {
		return "", fmt.Errorf("value is null or unknown")
	}
	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Number:
		return val.AsBigFloat().Text('f', -1), nil
	case cty.Bool:
		return strconv.FormatBool(val.True()), nil
	default:
		data, err := ctyjson.Marshal(val, val.Type())
		if err != nil {
			return "", fmt.Errorf("cannot render %s value: %w", val.Type().FriendlyName(), err)
		}
		return string(data), nil
	}
}
