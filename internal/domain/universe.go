package domain

// Universe ordered, bounded set of pairs considered in a scan cycle.
type Universe []Pair

// Contains reports whether the pair is part of the universe.
func (u Universe) Contains(p Pair) bool {
	for _, q := range u {
		if q == p {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (u Universe) Clone() Universe {
	if u == nil {
		return nil
	}
	out := make(Universe, len(u))
	copy(out, u)
	return out
}
