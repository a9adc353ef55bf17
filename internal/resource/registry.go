package resource

import "fmt"

// Claim is one registry entry, in the order it was recorded.
type Claim struct {
	ID    ID
	Owner string
}

// Registry maps resource IDs to the name of the owning device.
//
// Invariant: an ID is present at most once. Inserting a duplicate is a
// conflict, never a merge or an overwrite.
type Registry struct {
	owners map[ID]string
	order  []ID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{owners: make(map[ID]string)}
}

// Claim records owner as the exclusive owner of id.
//
// Returns a *ConflictError naming both owners if id is already claimed,
// regardless of who claimed it.
func (r *Registry) Claim(id ID, owner string) error {
	if id.Value == "" {
		return fmt.Errorf("%w: empty %s id claimed by %q", ErrInvalidID, id.Kind, owner)
	}
	if existing, ok := r.owners[id]; ok {
		return &ConflictError{ID: id, Owner: owner, Existing: existing}
	}
	r.owners[id] = owner
	r.order = append(r.order, id)
	return nil
}

// Owner returns the owner of id, if claimed.
func (r *Registry) Owner(id ID) (string, bool) {
	owner, ok := r.owners[id]
	return owner, ok
}

// Len returns the number of claimed resources.
func (r *Registry) Len() int {
	return len(r.owners)
}

// Claims returns a copy of all entries in claim order.
func (r *Registry) Claims() []Claim {
	claims := make([]Claim, 0, len(r.order))
	for _, id := range r.order {
		claims = append(claims, Claim{ID: id, Owner: r.owners[id]})
	}
	return claims
}

// ReleaseAll removes every entry. There is no per-entry release.
func (r *Registry) ReleaseAll() {
	clear(r.owners)
	r.order = r.order[:0]
}
