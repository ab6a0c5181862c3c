package tfwrite

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/blockgrid/internal/tfir"
	"github.com/zclconf/go-cty/cty"
)

const indentWidth = 2

// renderContext tells whether an object body is a block body, where nested plain
// objects become blocks, or an expression, where everything is `key = value`.
type renderContext int

const (
	blockContext renderContext = iota
	exprContext
)

// Serialize renders items separated by a blank line.
func Serialize(items []*tfir.Item) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, SerializeItem(it))
	}
	return strings.Join(parts, "\n\n")
}

// SerializeItem renders one top-level block.
func SerializeItem(it *tfir.Item) string {
	var sb strings.Builder
	sb.WriteString(string(it.Category))
	if it.Type != "" {
		fmt.Fprintf(&sb, " %q", it.Type)
	}
	if it.Name != "" {
		fmt.Fprintf(&sb, " %q", it.Name)
	}
	sb.WriteString(" ")
	writeObject(&sb, it.Body, 1, blockContext)
	return sb.String()
}

// FormatValue renders a single value at the top nesting level.
func FormatValue(v tfir.Value) string {
	var sb strings.Builder
	writeValue(&sb, v, 1)
	return sb.String()
}

func writeObject(sb *strings.Builder, o *tfir.Object, level int, ctx renderContext) {
	sb.WriteString("{")
	for _, key := range o.Keys() {
		v, _ := o.Get(key)
		sb.WriteString("\n")
		sb.WriteString(indent(level))
		writeProperty(sb, key, v, level, ctx)
	}
	sb.WriteString("\n")
	sb.WriteString(indent(level - 1))
	sb.WriteString("}")
}

func writeProperty(sb *strings.Builder, key string, v tfir.Value, level int, ctx renderContext) {
	switch x := v.(type) {
	case tfir.Complex:
		if x.Key != "" {
			key = x.Key
		}
		mode := x.Mode
		if ctx == exprContext && mode == tfir.ModeBlock {
			mode = tfir.ModeAssign
		}
		switch mode {
		case tfir.ModeBlock:
			sb.WriteString(key)
			if x.KeyType != "" {
				fmt.Fprintf(sb, " %q", x.KeyType)
			}
			sb.WriteString(" ")
			writeObject(sb, orEmpty(x.Value), level+1, blockContext)
		case tfir.ModeAssign:
			sb.WriteString(objectKey(key, ctx))
			sb.WriteString(" = ")
			writeObject(sb, orEmpty(x.Value), level+1, exprContext)
		case tfir.ModeJSONEncode:
			sb.WriteString(objectKey(key, ctx))
			sb.WriteString(" = jsonencode(")
			writeObject(sb, orEmpty(x.Value), level+1, exprContext)
			sb.WriteString(")")
		}
	case *tfir.Object:
		if ctx == blockContext {
			sb.WriteString(key)
			sb.WriteString(" ")
			writeObject(sb, x, level+1, blockContext)
			return
		}
		sb.WriteString(objectKey(key, ctx))
		sb.WriteString(" = ")
		writeObject(sb, x, level+1, exprContext)
	default:
		sb.WriteString(objectKey(key, ctx))
		sb.WriteString(" = ")
		writeValue(sb, v, level)
	}
}

func writeValue(sb *strings.Builder, v tfir.Value, level int) {
	switch x := v.(type) {
	case nil, tfir.Null:
		sb.WriteString("null")
	case tfir.String:
		sb.WriteString(quote(string(x)))
	case tfir.Number:
		sb.Write(hclwrite.TokensForValue(cty.NumberFloatVal(float64(x))).Bytes())
	case tfir.Bool:
		sb.Write(hclwrite.TokensForValue(cty.BoolVal(bool(x))).Bytes())
	case tfir.Raw:
		sb.WriteString(string(x))
	case tfir.Ref:
		sb.WriteString(x.Path())
	case tfir.List:
		if len(x) == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteString("[")
		for i, e := range x {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, e, level)
		}
		sb.WriteString("]")
	case *tfir.Object:
		writeObject(sb, x, level+1, exprContext)
	case tfir.Complex:
		if x.Mode == tfir.ModeJSONEncode {
			sb.WriteString("jsonencode(")
			writeObject(sb, orEmpty(x.Value), level+1, exprContext)
			sb.WriteString(")")
			return
		}
		writeObject(sb, orEmpty(x.Value), level+1, exprContext)
	default:
		panic(fmt.Sprintf("tfwrite: unhandled value %T", v))
	}
}

func indent(level int) string {
	if level <= 0 {
		return ""
	}
	return strings.Repeat(" ", indentWidth*level)
}

func orEmpty(o *tfir.Object) *tfir.Object {
	if o == nil {
		return tfir.NewObject()
	}
	return o
}

// objectKey quotes keys that are not identifiers when they appear inside an
// object expression, e.g. `"Content-Type" = ...`.
func objectKey(key string, ctx renderContext) string {
	if ctx == exprContext && !hclsyntax.ValidIdentifier(key) {
		return quote(key)
	}
	return key
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// quote escapes a string literal. `${...}` is left untouched so templates
// keep interpolating.
func quote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}

// Format canonicalizes layout the way `terraform fmt` does.
func Format(src []byte) []byte {
	return hclwrite.Format(src)
}

// Validate parses rendered configuration and reports syntax errors.
func Validate(src []byte, filename string) error {
	_, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return fmt.Errorf("generated configuration is invalid: %w", diags)
	}
	return nil
}
