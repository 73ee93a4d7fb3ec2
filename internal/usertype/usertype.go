// Package usertype defines the privilege ladder used for every authorization
// decision. Privilege is a single scalar order, not a role graph: every check
// reduces to one integer comparison.
package usertype

import "math"

// UserType is an immutable (name, access level) pair.
type UserType struct {
	name  string
	level int64
}

// New constructs a UserType with the given name and access level.
func New(name string, level int64) UserType {
	return UserType{name: name, level: level}
}

func (t UserType) Name() string       { return t.name }
func (t UserType) AccessLevel() int64 { return t.level }
func (t UserType) String() string     { return t.name }

// CanAccessLevel reports whether this type has a sufficient access level for
// whatever requires the passed type. Equal levels may always act on each
// other.
func (t UserType) CanAccessLevel(required UserType) bool {
	return t.level >= required.AccessLevel()
}

// None is the zero-privilege sentinel. Any undefined or garbled type claim
// degrades to it instead of failing.
var None = UserType{name: "none", level: 0}

// Built-in ladder, ascending. Admin and SuperAdmin sit at the top of the
// int64 range so no custom type can be registered above them.
var defaults = map[string]UserType{
	"Viewer":     New("Viewer", 1<<4),
	"Writer":     New("Writer", 1<<16),
	"Editor":     New("Editor", 1<<32),
	"Admin":      New("Admin", math.MaxInt64-1),
	"SuperAdmin": New("SuperAdmin", math.MaxInt64),
}

// Map resolves type names to registered UserTypes.
type Map struct {
	types map[string]UserType
}

// NewMap returns a Map seeded with the built-in ladder.
func NewMap() *Map {
	m := &Map{types: make(map[string]UserType, len(defaults))}
	for name, t := range defaults {
		m.types[name] = t
	}
	return m
}

// Get returns the registered type for name, or the zero-privilege None
// sentinel if the name is unknown. It never fails.
func (m *Map) Get(name string) UserType {
	if t, ok := m.types[name]; ok {
		return t
	}
	return None
}

// Compare returns the sign of a.AccessLevel() - b.AccessLevel().
func (m *Map) Compare(a, b UserType) int {
	switch {
	case a.AccessLevel() > b.AccessLevel():
		return 1
	case a.AccessLevel() < b.AccessLevel():
		return -1
	default:
		return 0
	}
}

// AddTypes merges custom types into the map. The built-ins are re-applied
// after the merge so the default ladder can never be tampered with.
func (m *Map) AddTypes(types map[string]UserType) {
	for name, t := range types {
		m.types[name] = t
	}
	for name, t := range defaults {
		m.types[name] = t
	}
}

// AddType registers a single custom type, subject to the same built-in
// protection as AddTypes.
func (m *Map) AddType(t UserType) {
	m.AddTypes(map[string]UserType{t.Name(): t})
}
