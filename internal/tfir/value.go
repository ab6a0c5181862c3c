package tfir

// Value is a property value. The set of implementations is closed.
type Value interface {
	isValue()
}

// Null renders as the null literal.
type Null struct{}

// String is a quoted string. `${...}` sequences inside it stay interpolations.
type String string

// Number is a numeric literal.
type Number float64

// Bool is a boolean literal.
type Bool bool

// Raw is an expression emitted verbatim, e.g. `timestamp()`.
type Raw string

// List is a tuple of values.
type List []Value

// Mode selects how a Complex value is written.
type Mode int

const (
	// ModeBlock writes `key {`, a nested block.
	ModeBlock Mode = iota
	// ModeAssign writes `key = {`, an object expression.
	ModeAssign
	// ModeJSONEncode writes `key = jsonencode({ ... })`.
	ModeJSONEncode
)

// Complex wraps a nested object with an explicit rendering mode. Key, when
// set, replaces the property name; KeyType adds a quoted block label.
type Complex struct {
	Mode    Mode
	Key     string
	KeyType string
	Value   *Object
}

// Block is shorthand for a nested block.
func Block(o *Object) Complex { return Complex{Mode: ModeBlock, Value: o} }

// Assign is shorthand for an object expression.
func Assign(o *Object) Complex { return Complex{Mode: ModeAssign, Value: o} }

// JSONEncode is shorthand for a jsonencode() wrapped object.
func JSONEncode(o *Object) Complex { return Complex{Mode: ModeJSONEncode, Value: o} }

func (Null) isValue()    {}
func (String) isValue()  {}
func (Number) isValue()  {}
func (Bool) isValue()    {}
func (Raw) isValue()     {}
func (List) isValue()    {}
func (*Object) isValue() {}
func (Ref) isValue()     {}
func (Complex) isValue() {}

// Strings builds a list of string values.
func Strings(ss ...string) List {
	l := make(List, 0, len(ss))
	for _, s := range ss {
		l = append(l, String(s))
	}
	return l
}

// Object is an ordered map of property names to values.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Set stores a value. Replacing an existing key keeps its position.
func (o *Object) Set(key string, v Value) *Object {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
	return o
}

// Get returns the value under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}


// Heredoc wraps a multi-line string in an indented heredoc. Interpolations
// inside the body stay live.
func Heredoc(body string) Raw {
	return Raw("<<-EOT\n" + body + "\nEOT")
}
