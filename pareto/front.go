// Package pareto maintains a bounded set of mutually non-dominated variants.
package pareto

import (
	"sort"

	"github.com/c360studio/semarch/architecture"
)

// member is a variant with its insertion sequence.
type member struct {
	seq     int
	variant architecture.Variant
}

// Front is a bounded Pareto front. Members never dominate each other.
// A Front is owned by a single search and is not safe for concurrent use.
type Front struct {
	capacity int
	nextSeq  int
	members  []member
}

// NewFront creates a front holding at most capacity variants.
func NewFront(capacity int) *Front {
	if capacity < 1 {
		capacity = 1
	}
	return &Front{capacity: capacity}
}

// Capacity returns the maximum number of members.
func (f *Front) Capacity() int {
	return f.capacity
}

// Len returns the number of members.
func (f *Front) Len() int {
	return len(f.members)
}

// Add inserts v unless a member dominates it, evicting every member v
// dominates. Variants with identical objective vectors coexist. When the
// front overflows, the last member in (Weighted desc, insertion asc) order
// is evicted. Add reports whether v is a member afterwards.
func (f *Front) Add(v architecture.Variant) bool {
	for _, m := range f.members {
		if m.variant.Score.Dominates(v.Score) {
			return false
		}
	}

	kept := f.members[:0:0]
	for _, m := range f.members {
		if !v.Score.Dominates(m.variant.Score) {
			kept = append(kept, m)
		}
	}
	seq := f.nextSeq
	f.nextSeq++
	f.members = append(kept, member{seq: seq, variant: v})

	if len(f.members) <= f.capacity {
		return true
	}

	worst := f.ranked()[len(f.members)-1]
	f.remove(worst.seq)
	return worst.seq != seq
}

// Variants returns the members in insertion order.
func (f *Front) Variants() []architecture.Variant {
	out := make([]architecture.Variant, len(f.members))
	for i, m := range f.members {
		out[i] = m.variant
	}
	return out
}

// Ranked returns the members ordered by Weighted descending, then by
// insertion order.
func (f *Front) Ranked() []architecture.Variant {
	ranked := f.ranked()
	out := make([]architecture.Variant, len(ranked))
	for i, m := range ranked {
		out[i] = m.variant
	}
	return out
}

// Best returns the member with the highest Weighted score, earliest
// inserted among ties.
func (f *Front) Best() (architecture.Variant, bool) {
	if len(f.members) == 0 {
		return architecture.Variant{}, false
	}
	return f.ranked()[0].variant, true
}

// NonDominated reports whether no two members dominate each other.
func (f *Front) NonDominated() bool {
	for i := range f.members {
		for j := range f.members {
			if i != j && f.members[i].variant.Score.Dominates(f.members[j].variant.Score) {
				return false
			}
		}
	}
	return true
}

func (f *Front) ranked() []member {
	out := append([]member(nil), f.members...)
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := out[i].variant.Score.Weighted, out[j].variant.Score.Weighted
		if wi != wj {
			return wi > wj
		}
		return out[i].seq < out[j].seq
	})
	return out
}

func (f *Front) remove(seq int) {
	for i, m := range f.members {
		if m.seq == seq {
			f.members = append(f.members[:i], f.members[i+1:]...)
			return
		}
	}
}
