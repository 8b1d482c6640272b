package resources

import "github.com/shopspring/decimal"

// Quantities is a scalar-only resource-name -> amount map, the type quota
// guarantees, DRF denominators and the shrink target are expressed in.
type Quantities map[string]decimal.Decimal

// Clone returns an independent copy.
func (q Quantities) Clone() Quantities {
	out := make(Quantities, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// Get returns the amount for name, or zero if absent.
func (q Quantities) Get(name string) decimal.Decimal {
	if v, ok := q[name]; ok {
		return v
	}
	return decimal.Zero
}

// Add returns q + other, name-wise.
func (q Quantities) Add(other Quantities) Quantities {
	out := q.Clone()
	for name, v := range other {
		out[name] = out.Get(name).Add(v)
	}
	return out
}

// Sub returns q - other, clamped at zero per name (quantities never go negative).
func (q Quantities) Sub(other Quantities) Quantities {
	out := make(Quantities, len(q))
	for name, v := range q {
		d := v.Sub(other.Get(name))
		if d.IsNegative() {
			d = decimal.Zero
		}
		out[name] = d
	}
	return out
}

// Max0 returns, name-wise, max(q[name], 0); names already non-negative are
// returned unchanged. Convenience for "max(0, guarantee - consumed)" math.
func (q Quantities) Max0() Quantities {
	out := make(Quantities, len(q))
	for name, v := range q {
		if v.IsNegative() {
			v = decimal.Zero
		}
		out[name] = v
	}
	return out
}

// IsZero reports whether every entry is zero (or the map is empty).
func (q Quantities) IsZero() bool {
	for _, v := range q {
		if !v.IsZero() {
			return false
		}
	}
	return true
}

// LessOrEqual reports whether q[name] <= other[name] for every name in q.
func (q Quantities) LessOrEqual(other Quantities) bool {
	for name, v := range q {
		if v.GreaterThan(other.Get(name)) {
			return false
		}
	}
	return true
}

// Names returns the set of resource names present with a non-zero amount.
func (q Quantities) Names() []string {
	names := make([]string, 0, len(q))
	for name, v := range q {
		if !v.IsZero() {
			names = append(names, name)
		}
	}
	return names
}
