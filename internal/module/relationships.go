package module

// RelationshipKind selects one of a module's relationship lists.
type RelationshipKind int

const (
	Depends RelationshipKind = iota
	Recommends
	Suggests
	Supports
	Conflicts
)

var relationshipKinds = []struct {
	kind   RelationshipKind
	name   string
	access func(*Module) []Relationship
}{
	{Depends, "depends", func(m *Module) []Relationship { return m.Depends }},
	{Recommends, "recommends", func(m *Module) []Relationship { return m.Recommends }},
	{Suggests, "suggests", func(m *Module) []Relationship { return m.Suggests }},
	{Supports, "supports", func(m *Module) []Relationship { return m.Supports }},
	{Conflicts, "conflicts", func(m *Module) []Relationship { return m.Conflicts }},
}

// Kinds returns every relationship kind in declaration order.
func Kinds() []RelationshipKind {
	out := make([]RelationshipKind, 0, len(relationshipKinds))
	for _, k := range relationshipKinds {
		out = append(out, k.kind)
	}
	return out
}

func (k RelationshipKind) String() string {
	if int(k) >= 0 && int(k) < len(relationshipKinds) {
		return relationshipKinds[k].name
	}
	return "unknown"
}

// Relationships returns m's relationship list of the given kind.
func (m *Module) Relationships(kind RelationshipKind) []Relationship {
	if m == nil || int(kind) < 0 || int(kind) >= len(relationshipKinds) {
		return nil
	}
	return relationshipKinds[kind].access(m)
}

// Names reports whether any relationship of the given kind names name directly.
func (m *Module) Names(kind RelationshipKind, name string) bool {
	for _, rel := range m.Relationships(kind) {
		if rel.Name == name {
			return true
		}
	}
	return false
}
