// Package types implements the canonical type lattice T described in
// spec §3: a closed set of atomic tags, and the widening operation
// that builds non-empty type sets over it.
package types

import "sort"

// Tag is one atomic member of the canonical type lattice.
type Tag string

const (
	String     Tag = "string"
	Int32      Tag = "int32"
	Int64      Tag = "int64"
	Double     Tag = "double"
	Decimal    Tag = "decimal"
	Bool       Tag = "bool"
	Date       Tag = "date"
	ObjectID   Tag = "objectId"
	Array      Tag = "array"
	Object     Tag = "object"
	Binary     Tag = "binary"
	Regex      Tag = "regex"
	Timestamp  Tag = "timestamp"
	JavaScript Tag = "javascript"
	MinKey     Tag = "minKey"
	MaxKey     Tag = "maxKey"
	DBPointer  Tag = "dbPointer"
	Null       Tag = "null"
)

// Set is a field type: a non-empty, duplicate-free collection of tags.
// Order is significant for emission (descending by observed frequency,
// lexicographic tie-break, per spec §3) but not for equality.
type Set struct {
	counts map[Tag]int64
}

// NewSet builds a Set from an initial list of tags, each with count 1.
func NewSet(tags ...Tag) Set {
	s := Set{counts: make(map[Tag]int64, len(tags))}
	for _, t := range tags {
		s.counts[t]++
	}
	return s
}

// Observe records one more occurrence of tag in the set.
func (s *Set) Observe(tag Tag) {
	if s.counts == nil {
		s.counts = make(map[Tag]int64)
	}
	s.counts[tag]++
}

// Tags returns the set's members ordered by descending observed count,
// lexicographic tag name as the tie-break — the order spec §3 requires
// for emission.
func (s Set) Tags() []Tag {
	tags := make([]Tag, 0, len(s.counts))
	for t := range s.counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		ci, cj := s.counts[tags[i]], s.counts[tags[j]]
		if ci != cj {
			return ci > cj
		}
		return tags[i] < tags[j]
	})
	return tags
}

// Count returns the observation count recorded for tag, or zero.
func (s Set) Count(tag Tag) int64 { return s.counts[tag] }

// Len returns the number of distinct tags in the set.
func (s Set) Len() int { return len(s.counts) }

// Has reports whether tag is a member of the set.
func (s Set) Has(tag Tag) bool {
	_, ok := s.counts[tag]
	return ok
}

// IsSingleton reports whether the set has exactly one tag — the case
// spec §3 renders as a bare tag rather than a sequence.
func (s Set) IsSingleton() bool { return len(s.counts) == 1 }

// WithoutNull returns a copy of s with the null marker removed.
func (s Set) WithoutNull() Set {
	out := Set{counts: make(map[Tag]int64, len(s.counts))}
	for t, c := range s.counts {
		if t != Null {
			out.counts[t] = c
		}
	}
	return out
}

// Subset reports whether every tag in s also appears in other —
// the ⊆ relation used by the widening and drift-asymmetry rules.
func (s Set) Subset(other Set) bool {
	for t := range s.counts {
		if !other.Has(t) {
			return false
		}
	}
	return true
}

// Equal reports whether s and other contain exactly the same tags
// (counts are not compared — they are advisory statistics, not part
// of structural equality per spec §3).
func (s Set) Equal(other Set) bool {
	if len(s.counts) != len(other.counts) {
		return false
	}
	return s.Subset(other)
}

// Widen computes widen(a, b) per spec §4.1: commutative, associative,
// union over the lattice with no numeric-tag collapsing and no
// absorption of one tag by another — every observed tag survives.
func Widen(a, b Set) Set {
	out := Set{counts: make(map[Tag]int64, a.Len()+b.Len())}
	for t, c := range a.counts {
		out.counts[t] += c
	}
	for t, c := range b.counts {
		out.counts[t] += c
	}
	return out
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := Set{counts: make(map[Tag]int64, len(s.counts))}
	for t, c := range s.counts {
		out.counts[t] = c
	}
	return out
}
