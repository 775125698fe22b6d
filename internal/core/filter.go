package core

// Filter narrows which transactions a query considers. Every field is
// independently optional; set fields combine with logical AND and the
// date bounds are inclusive. The zero Filter matches everything.
type Filter struct {
	From     Date
	To       Date
	Type     Type
	Category string
}

// IsZero reports whether no dimension is constrained.
func (f Filter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() && f.Type == "" && f.Category == ""
}

// Matches applies the filter to a single transaction.
func (f Filter) Matches(t Transaction) bool {
	if !f.From.IsZero() && t.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To.Time) {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	return true
}
