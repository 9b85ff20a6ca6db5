package types

import "strings"

// Kind is the structural classification of a resolved type.
type Kind string

const (
	KindPrimitive   Kind = "primitive"
	KindOpaque      Kind = "opaque"
	KindEnumeration Kind = "enumeration"
	KindMap         Kind = "map"
	KindCollection  Kind = "collection"
	KindObject      Kind = "object"
)

// TypeRef is a reference to a possibly generic, possibly array type.
// Values are never mutated after creation; helpers return copies.
type TypeRef struct {
	Name      string    `json:"name" yaml:"name"`
	Args      []TypeRef `json:"args,omitempty" yaml:"args,omitempty"`
	Dims      int       `json:"dims,omitempty" yaml:"dims,omitempty"`
	Primitive bool      `json:"primitive,omitempty" yaml:"primitive,omitempty"`
}

// Ref builds a TypeRef from a name and type arguments.
func Ref(name string, args ...TypeRef) TypeRef {
	return TypeRef{Name: name, Args: args}
}

// IsArray reports whether the ref has at least one array dimension.
func (t TypeRef) IsArray() bool {
	return t.Dims > 0
}

// Component returns the array component type (one dimension less).
func (t TypeRef) Component() TypeRef {
	c := t
	if c.Dims > 0 {
		c.Dims--
	}
	return c
}

// WithDims returns a copy with extra array dimensions added.
func (t TypeRef) WithDims(extra int) TypeRef {
	c := t
	c.Dims += extra
	return c
}

// SimpleName is the last dotted segment of Name, without arguments or dimensions.
func (t TypeRef) SimpleName() string {
	return SimpleName(t.Name)
}

// SimpleName strips the package/qualifier part of a qualified name.
func SimpleName(name string) string {
	if i := strings.LastIndexAny(name, "./$"); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return name
}

// Equal reports structural equality.
func (t TypeRef) Equal(o TypeRef) bool {
	if t.Name != o.Name || t.Dims != o.Dims || t.Primitive != o.Primitive || len(t.Args) != len(o.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

func (t TypeRef) String() string {
	b := &strings.Builder{}
	t.write(b, false)
	return b.String()
}

// ShortString renders the ref with simple names only, e.g. List<User>.
func (t TypeRef) ShortString() string {
	b := &strings.Builder{}
	t.write(b, true)
	return b.String()
}

func (t TypeRef) write(b *strings.Builder, short bool) {
	if short {
		b.WriteString(t.SimpleName())
	} else {
		b.WriteString(t.Name)
	}
	if len(t.Args) > 0 {
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			a.write(b, short)
		}
		b.WriteByte('>')
	}
	for i := 0; i < t.Dims; i++ {
		b.WriteString("[]")
	}
}

// ClassMetadata describes one declared class.
type ClassMetadata struct {
	Name       string          `json:"name" yaml:"name"`
	Doc        string          `json:"doc,omitempty" yaml:"doc,omitempty"`
	Fields     []FieldMetadata `json:"fields,omitempty" yaml:"fields,omitempty"`
	Super      *TypeRef        `json:"super,omitempty" yaml:"super,omitempty"`
	TypeParams []string        `json:"type_params,omitempty" yaml:"type_params,omitempty"`
	Enum       bool            `json:"enum,omitempty" yaml:"enum,omitempty"`
	EnumValues []string        `json:"enum_values,omitempty" yaml:"enum_values,omitempty"`
}

// FieldMetadata describes one declared field.
type FieldMetadata struct {
	Name     string  `json:"name" yaml:"name"`
	Type     TypeRef `json:"type" yaml:"type"`
	Doc      string  `json:"doc,omitempty" yaml:"doc,omitempty"`
	Required bool    `json:"required,omitempty" yaml:"required,omitempty"`
	Constant bool    `json:"constant,omitempty" yaml:"constant,omitempty"`
}

// ParameterNode is one entry of a parameter tree. The root has an empty name.
type ParameterNode struct {
	Name        string           `json:"name"`
	Type        TypeRef          `json:"type"`
	Kind        Kind             `json:"kind"`
	Required    bool             `json:"required"`
	Description string           `json:"description,omitempty"`
	Children    []*ParameterNode `json:"children,omitempty"`
}

// Flatten returns the tree in pre-order; the first element is always n itself.
func (n *ParameterNode) Flatten() []*ParameterNode {
	if n == nil {
		return nil
	}
	out := []*ParameterNode{n}
	for _, c := range n.Children {
		out = append(out, c.Flatten()...)
	}
	return out
}

// LeafName is the last dotted segment of the node path.
func (n *ParameterNode) LeafName() string {
	if i := strings.LastIndexByte(n.Name, '.'); i >= 0 {
		return n.Name[i+1:]
	}
	return n.Name
}

// Detached returns the pre-order flattening with every entry copied and its
// children dropped.
func (n *ParameterNode) Detached() []*ParameterNode {
	nodes := n.Flatten()
	out := make([]*ParameterNode, len(nodes))
	for i, node := range nodes {
		c := *node
		c.Children = nil
		out[i] = &c
	}
	return out
}

// BuildTree rebuilds a tree from a detached pre-order sequence using the
// dotted paths. The first node is the root; nodes whose parent path is
// unknown hang off the root.
func BuildTree(nodes []*ParameterNode) *ParameterNode {
	if len(nodes) == 0 {
		return nil
	}
	root := &ParameterNode{}
	*root = *nodes[0]
	root.Children = nil
	byPath := map[string]*ParameterNode{root.Name: root}
	for _, n := range nodes[1:] {
		c := *n
		c.Children = nil
		parent := root
		if i := strings.LastIndexByte(c.Name, '.'); i >= 0 {
			if p, ok := byPath[c.Name[:i]]; ok {
				parent = p
			}
		}
		parent.Children = append(parent.Children, &c)
		byPath[c.Name] = &c
	}
	return root
}
