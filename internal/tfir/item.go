package tfir

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Category is the keyword that opens a top-level block.
type Category string

const (
	CategoryResource Category = "resource"
	CategoryData     Category = "data"
	CategoryProvider Category = "provider"
	CategoryOutput   Category = "output"
	CategorySetup    Category = "terraform"
)

// Item is one top-level configuration block.
type Item struct {
	Category Category
	Type     string
	Name     string
	Body     *Object
}

// NewResource creates a managed resource. The name is forced into a valid label.
func NewResource(typ, name string) *Item {
	return &Item{Category: CategoryResource, Type: typ, Name: Label(name), Body: NewObject()}
}

// NewData creates a data source.
func NewData(typ, name string) *Item {
	return &Item{Category: CategoryData, Type: typ, Name: Label(name), Body: NewObject()}
}

// NewProvider creates a provider configuration block.
func NewProvider(name string) *Item {
	return &Item{Category: CategoryProvider, Type: name, Body: NewObject()}
}

// NewOutput creates an output value block.
func NewOutput(name string, value Value) *Item {
	it := &Item{Category: CategoryOutput, Name: Label(name), Body: NewObject()}
	it.Body.Set("value", value)
	return it
}

// NewSetup creates the terraform settings block.
func NewSetup() *Item {
	return &Item{Category: CategorySetup, Body: NewObject()}
}

// Set stores a property on the item body.
func (i *Item) Set(key string, v Value) *Item {
	i.Body.Set(key, v)
	return i
}

// Get returns a property from the item body.
func (i *Item) Get(key string) (Value, bool) {
	return i.Body.Get(key)
}

// Address is the traversal naming this item, with a `data` prefix for data sources.
func (i *Item) Address() *Address {
	addr := &Address{}
	if i.Category == CategoryData {
		addr.Path = append(addr.Path, NewPathSegment("data"))
	}
	if i.Type != "" {
		addr.Path = append(addr.Path, NewPathSegment(i.Type))
	}
	if i.Name != "" {
		addr.Path = append(addr.Path, NewPathSegment(i.Name))
	}
	return addr
}

// Ref points at the item or, when field is given, at one of its attributes.
// The field may be a dotted path with indices such as `names[0]`.
func (i *Item) Ref(field ...string) Ref {
	addr := i.Address()
	if f := strings.Join(field, "."); f != "" {
		tail, err := ParseAddress(f)
		if err != nil {
			panic(fmt.Sprintf("tfir: invalid reference field %q: %v", f, err))
		}
		addr = addr.Append(tail)
	}
	return Ref{addr: addr}
}

// Ref is a bare traversal to another item.
type Ref struct {
	addr *Address
}

// Path returns the dotted traversal, suitable for embedding inside `${...}`.
func (r Ref) Path() string { return r.addr.String() }

// Interp returns the traversal wrapped for use inside a string template.
func (r Ref) Interp() string { return "${" + r.Path() + "}" }

// From converts plain Go values, and cty values, into IR values. Strings
// starting with `&` become bare expressions. Map keys are sorted.
func From(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case string:
		if strings.HasPrefix(x, "&") {
			return Raw(x[1:]), nil
		}
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Number(x), nil
	case int64:
		return Number(x), nil
	case float64:
		return Number(x), nil
	case []string:
		return Strings(x...), nil
	case []any:
		out := make(List, 0, len(x))
		for _, e := range x {
			ev, err := From(e)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	case map[string]string:
		obj := NewObject()
		for _, k := range sortedKeys(x) {
			obj.Set(k, String(x[k]))
		}
		return obj, nil
	case map[string]any:
		obj := NewObject()
		for _, k := range sortedKeys(x) {
			ev, err := From(x[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			obj.Set(k, ev)
		}
		return obj, nil
	case cty.Value:
		return fromCty(x)
	default:
		return nil, fmt.Errorf("tfir: unsupported value type %T", v)
	}
}

func fromCty(v cty.Value) (Value, error) {
	if v.IsNull() {
		return Null{}, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("tfir: unknown cty value of type %s", v.Type().FriendlyName())
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return String(v.AsString()), nil
	case ty == cty.Bool:
		return Bool(v.True()), nil
	case ty == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		if v.AsBigFloat().IsInt() {
			i, _ := v.AsBigFloat().Int(new(big.Int))
			return Number(i.Int64()), nil
		}
		return Number(f), nil
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		out := List{}
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			conv, err := fromCty(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, conv)
		}
		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		obj := NewObject()
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			conv, err := fromCty(ev)
			if err != nil {
				return nil, err
			}
			obj.Set(k.AsString(), conv)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("tfir: unsupported cty type %s", ty.FriendlyName())
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
