package policy

import "github.com/garyjia/dmt-records/internal/domain/entity"

// FieldSet is an immutable ordered set of fields
type FieldSet struct {
	ordered []entity.Field
	index   map[entity.Field]struct{}
}

func newFieldSet(groups ...[]entity.Field) FieldSet {
	s := FieldSet{index: make(map[entity.Field]struct{})}
	for _, group := range groups {
		for _, f := range group {
			if _, ok := s.index[f]; ok {
				continue
			}
			s.index[f] = struct{}{}
			s.ordered = append(s.ordered, f)
		}
	}
	return s
}

// Contains reports whether f is in the set
func (s FieldSet) Contains(f entity.Field) bool {
	_, ok := s.index[f]
	return ok
}

// Fields returns a copy of the members in declaration order
func (s FieldSet) Fields() []entity.Field {
	out := make([]entity.Field, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Len returns the number of members
func (s FieldSet) Len() int {
	return len(s.ordered)
}
