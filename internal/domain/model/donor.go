// Package model contains domain models passed between layers.
package model

// DonorRecord is the read-only snapshot of the donor fields used for matching.
// Optional fields are nil when the source row has no value. ID is nil for
// import rows that have not been persisted yet.
type DonorRecord struct {
	ID         *string `json:"id,omitempty"`
	Email      *string `json:"email,omitempty"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Phone      *string `json:"phone,omitempty"`
	Mobile     *string `json:"mobile,omitempty"`
	Address    *string `json:"address,omitempty"`
	City       *string `json:"city,omitempty"`
	PostalCode *string `json:"postalCode,omitempty"`
}

// Str returns a pointer to s, or nil when s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences p, returning "" for nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Key returns the record id or "" for unpersisted records.
func (r DonorRecord) Key() string {
	return Value(r.ID)
}

// Persisted reports whether the record carries a store id.
func (r DonorRecord) Persisted() bool {
	return r.ID != nil && *r.ID != ""
}

// SameRecord reports whether both records are the same persisted row.
func (r DonorRecord) SameRecord(o DonorRecord) bool {
	return r.Persisted() && o.Persisted() && *r.ID == *o.ID
}
