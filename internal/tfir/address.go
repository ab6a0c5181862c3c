package tfir

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PathSegment is one component of a traversal, e.g. `names[0]`.
type PathSegment struct {
	Name  string
	Index int // -1 when absent.
}

// NewPathSegment creates a segment without an index.
func NewPathSegment(name string) PathSegment {
	return PathSegment{Name: name, Index: -1}
}

// HasIndex reports whether the segment carries an index.
func (ps PathSegment) HasIndex() bool {
	return ps.Index != -1
}

// Address is a dotted traversal such as `data.aws_vpc.main.id`.
type Address struct {
	Path []PathSegment
}

// String renders the canonical dotted form.
func (a *Address) String() string {
	if a == nil {
		return ""
	}
	var sb strings.Builder
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteRune('.')
		}
		sb.WriteString(segment.Name)
		if segment.HasIndex() {
			sb.WriteString(fmt.Sprintf("[%d]", segment.Index))
		}
	}
	return sb.String()
}

// Append returns a new address with the segments of other added.
func (a *Address) Append(other *Address) *Address {
	out := &Address{Path: make([]PathSegment, 0, len(a.Path)+len(other.Path))}
	out.Path = append(out.Path, a.Path...)
	out.Path = append(out.Path, other.Path...)
	return out
}

var segmentRegex = regexp.MustCompile(`^([a-zA-Z0-9_-]+)(?:\[(\d+)\])?$`)

// ParseAddress parses the dotted form produced by Address.String.
func ParseAddress(raw string) (*Address, error) {
	if raw == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	addr := &Address{}
	for _, segmentStr := range strings.Split(raw, ".") {
		if segmentStr == "" {
			return nil, fmt.Errorf("address %q contains empty segment", raw)
		}
		matches := segmentRegex.FindStringSubmatch(segmentStr)
		if matches == nil {
			return nil, fmt.Errorf("invalid address segment: %q", segmentStr)
		}
		segment := NewPathSegment(matches[1])
		if matches[2] != "" {
			index, err := strconv.Atoi(matches[2])
			if err != nil {
				return nil, fmt.Errorf("invalid index in segment %q: %w", segmentStr, err)
			}
			segment.Index = index
		}
		addr.Path = append(addr.Path, segment)
	}
	return addr, nil
}

var labelInvalid = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Label turns an arbitrary string into a valid block label that can also be
// used as a traversal step.
func Label(s string) string {
	s = labelInvalid.ReplaceAllString(s, "_")
	if s == "" {
		return "_"
	}
	if c := s[0]; (c >= '0' && c <= '9') || c == '-' {
		s = "_" + s
	}
	return s
}
