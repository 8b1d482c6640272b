package resources

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// Shrink returns the subset of r restricted to resource names present in
// target, each capped at target's amount for that name. Scalar entries are
// divided down to the needed amount; indivisible items of a given name are
// taken whole, in a randomly shuffled order, until taking the next one
// would exceed the target — so the result may fall short of target when
// only indivisible items remain for a name (spec.md §4.4).
func Shrink(r Resources, target Quantities, rng *rand.Rand) Resources {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	byName := make(map[string][]Entry)
	for _, e := range r.entries {
		if !target.Get(e.Name).IsZero() {
			byName[e.Name] = append(byName[e.Name], e)
		}
	}

	var out []Entry
	for name, want := range target {
		if want.IsZero() {
			continue
		}
		entries := byName[name]
		remaining := want

		// Scalars first: consume whole or partial entries until satisfied.
		var indivisible []Entry
		for _, e := range entries {
			if remaining.IsZero() || remaining.IsNegative() {
				break
			}
			if e.Indivisible {
				indivisible = append(indivisible, e)
				continue
			}
			take := e.Scalar
			if take.GreaterThan(remaining) {
				take = remaining
			}
			out = append(out, Entry{Name: e.Name, Role: e.Role, Revocable: e.Revocable, Shared: e.Shared, Scalar: take})
			remaining = remaining.Sub(take)
		}

		if remaining.IsZero() || remaining.IsNegative() || len(indivisible) == 0 {
			continue
		}

		shuffled := append([]Entry(nil), indivisible...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		for _, e := range shuffled {
			if remaining.LessThanOrEqual(decimal.Zero) || e.Scalar.GreaterThan(remaining) {
				break
			}
			out = append(out, e)
			remaining = remaining.Sub(e.Scalar)
		}
	}
	return New(out...)
}
