// Package resources implements the Resources algebra the allocator is built
// on top of: scalar quantities, reservation/revocable/shared flags, and
// indivisible non-scalar items (ports, mounts). Spec treats this algebra as
// an externally supplied dependency; this package is that dependency's
// implementation.
package resources

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is a single resource line item, mirroring the granularity of a
// Mesos Resource protobuf entry: one name, one reservation role, one
// revocable/shared pair, and either a scalar amount or one indivisible unit.
type Entry struct {
	Name        string
	Role        string // "" means unreserved
	Revocable   bool
	Shared      bool
	Scalar      decimal.Decimal
	Indivisible bool
	ItemID      string // stable identity for an indivisible unit; used by Shrink's tie-break
}

func (e Entry) key() [4]string {
	role := e.Role
	rev := "0"
	if e.Revocable {
		rev = "1"
	}
	shared := "0"
	if e.Shared {
		shared = "1"
	}
	return [4]string{e.Name, role, rev, shared}
}

// Resources is an immutable-by-convention bag of Entry. All operations
// return a new value; none mutate the receiver.
type Resources struct {
	entries []Entry
}

// New builds a Resources value from raw entries.
func New(entries ...Entry) Resources {
	return Resources{entries: append([]Entry(nil), entries...)}
}

// ScalarRole returns a single non-revocable, non-shared scalar entry reserved
// for role (unreserved when role is "").
func ScalarRole(name, role string, amount decimal.Decimal) Resources {
	return New(Entry{Name: name, Role: role, Scalar: amount})
}

// Unreserved builds an unreserved, non-revocable scalar quantity map as Resources.
func Unreserved(q Quantities) Resources {
	entries := make([]Entry, 0, len(q))
	for name, amt := range q {
		if amt.IsZero() {
			continue
		}
		entries = append(entries, Entry{Name: name, Scalar: amt})
	}
	return New(entries...)
}

// IndivisibleItem constructs a single non-scalar unit (e.g. one port, one
// mount disk) worth `amount` toward its resource name's quantity total.
func IndivisibleItem(name, role string, amount decimal.Decimal) Entry {
	return Entry{Name: name, Role: role, Scalar: amount, Indivisible: true, ItemID: uuid.NewString()}
}

// Entries exposes the underlying line items for callers that need to
// iterate (e.g. the reservation tracker).
func (r Resources) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Empty reports whether Resources has no entries with a non-zero contribution.
func (r Resources) Empty() bool {
	for _, e := range r.entries {
		if e.Indivisible || !e.Scalar.IsZero() {
			return false
		}
	}
	return true
}

// Add merges other into r, summing scalar entries that share
// (name, role, revocable, shared) and appending indivisible items.
func (r Resources) Add(other Resources) Resources {
	merged := make(map[[4]string]Entry)
	order := make([][4]string, 0, len(r.entries)+len(other.entries))
	var indivisible []Entry

	addScalar := func(e Entry) {
		k := e.key()
		if cur, ok := merged[k]; ok {
			cur.Scalar = cur.Scalar.Add(e.Scalar)
			merged[k] = cur
		} else {
			merged[k] = e
			order = append(order, k)
		}
	}

	for _, e := range r.entries {
		if e.Indivisible {
			indivisible = append(indivisible, e)
			continue
		}
		addScalar(e)
	}
	for _, e := range other.entries {
		if e.Indivisible {
			indivisible = append(indivisible, e)
			continue
		}
		addScalar(e)
	}

	out := make([]Entry, 0, len(order)+len(indivisible))
	for _, k := range order {
		out = append(out, merged[k])
	}
	out = append(out, indivisible...)
	return New(out...)
}

// Subtract removes other's contribution from r. Scalar amounts are clamped
// at zero per (name, role, revocable, shared); indivisible items matching
// other's ItemID are dropped.
func (r Resources) Subtract(other Resources) Resources {
	remove := make(map[string]bool)
	scalarSub := make(map[[4]string]decimal.Decimal)
	for _, e := range other.entries {
		if e.Indivisible {
			remove[e.ItemID] = true
			continue
		}
		scalarSub[e.key()] = scalarSub[e.key()].Add(e.Scalar)
	}

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Indivisible {
			if remove[e.ItemID] {
				continue
			}
			out = append(out, e)
			continue
		}
		k := e.key()
		if d, ok := scalarSub[k]; ok {
			remaining := e.Scalar.Sub(d)
			if remaining.IsNegative() {
				remaining = decimal.Zero
			}
			scalarSub[k] = d.Sub(e.Scalar)
			if scalarSub[k].IsNegative() {
				scalarSub[k] = decimal.Zero
			}
			e.Scalar = remaining
		}
		if !e.Scalar.IsZero() || e.Indivisible {
			out = append(out, e)
		}
	}
	return New(out...)
}

// Contains reports whether r is a superset of other: every entry group in
// other has at least as much scalar quantity in r, and every indivisible
// item in other is present in r. This is the predicate isFiltered relies on
// (OfferFilter containment, §4.3).
func (r Resources) Contains(other Resources) bool {
	scalarHave := make(map[[4]string]decimal.Decimal)
	items := make(map[string]bool)
	for _, e := range r.entries {
		if e.Indivisible {
			items[e.ItemID] = true
			continue
		}
		scalarHave[e.key()] = scalarHave[e.key()].Add(e.Scalar)
	}

	scalarNeed := make(map[[4]string]decimal.Decimal)
	for _, e := range other.entries {
		if e.Indivisible {
			if !items[e.ItemID] {
				return false
			}
			continue
		}
		scalarNeed[e.key()] = scalarNeed[e.key()].Add(e.Scalar)
	}
	for k, need := range scalarNeed {
		if scalarHave[k].LessThan(need) {
			return false
		}
	}
	return true
}

// ToQuantities sums scalar contributions (unreserved and reserved alike,
// revocable and non-revocable alike) by resource name. Used as the DRF
// denominator/numerator source and for min-allocatable-resources checks.
func (r Resources) ToQuantities() Quantities {
	out := make(Quantities)
	for _, e := range r.entries {
		out[e.Name] = out.Get(e.Name).Add(e.Scalar)
	}
	return out
}

// filter narrows Resources to entries matching pred.
func (r Resources) filter(pred func(Entry) bool) Resources {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if pred(e) {
			out = append(out, e)
		}
	}
	return New(out...)
}

// ReservedFor returns the subset reserved for role (not its ancestors).
func (r Resources) ReservedFor(role string) Resources {
	return r.filter(func(e Entry) bool { return e.Role == role })
}

// ReservedForHierarchy returns the subset reserved for role or any of its
// ancestors (role, parent(role), ..., top-level), matching the "reserved for
// role and ancestors" language in spec.md §4.4 stage 2.
func (r Resources) ReservedForHierarchy(ancestors []string) Resources {
	set := make(map[string]bool, len(ancestors))
	for _, a := range ancestors {
		set[a] = true
	}
	return r.filter(func(e Entry) bool { return e.Role != "" && set[e.Role] })
}

// Unreserved returns the subset with no reservation role.
func (r Resources) Unreserved() Resources {
	return r.filter(func(e Entry) bool { return e.Role == "" })
}

// Reserved returns the subset with any reservation role.
func (r Resources) Reserved() Resources {
	return r.filter(func(e Entry) bool { return e.Role != "" })
}

// NonRevocable returns the subset that is not revocable.
func (r Resources) NonRevocable() Resources {
	return r.filter(func(e Entry) bool { return !e.Revocable })
}

// Revocable returns the subset that is revocable.
func (r Resources) Revocable() Resources {
	return r.filter(func(e Entry) bool { return e.Revocable })
}

// Scalars returns the subset of divisible scalar entries.
func (r Resources) Scalars() Resources {
	return r.filter(func(e Entry) bool { return !e.Indivisible })
}

// NonScalars returns the subset of indivisible items.
func (r Resources) NonScalars() Resources {
	return r.filter(func(e Entry) bool { return e.Indivisible })
}

// WithoutNames drops every entry whose name is in names (stage 1 uses it to
// drop resource names that carry a quota guarantee).
func (r Resources) WithoutNames(names map[string]bool) Resources {
	return r.filter(func(e Entry) bool { return !names[e.Name] })
}

// Shared returns the subset flagged shared.
func (r Resources) Shared() Resources {
	return r.filter(func(e Entry) bool { return e.Shared })
}

// NonShared returns the subset not flagged shared.
func (r Resources) NonShared() Resources {
	return r.filter(func(e Entry) bool { return !e.Shared })
}

// Allocatable implements the min-allocatable-resources predicate of §8:
// false if r is empty; true if sets is empty (no requirement configured);
// otherwise true iff any one requirement set is <= r's quantities.
func Allocatable(r Resources, sets []Quantities) bool {
	if r.Empty() {
		return false
	}
	if len(sets) == 0 {
		return true
	}
	have := r.ToQuantities()
	for _, need := range sets {
		if need.LessOrEqual(have) {
			return true
		}
	}
	return false
}
