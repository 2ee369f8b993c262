package model

// Field names a compared donor field.
type Field string

// Compared fields.
const (
	FieldEmail      Field = "email"
	FieldFirstName  Field = "firstName"
	FieldLastName   Field = "lastName"
	FieldPhone      Field = "phone"
	FieldAddress    Field = "address"
	FieldPostalCode Field = "postalCode"
)

// Fields lists every compared field in reporting order.
var Fields = []Field{ //nolint:gochecknoglobals // fixed field order
	FieldEmail,
	FieldFirstName,
	FieldLastName,
	FieldPhone,
	FieldAddress,
	FieldPostalCode,
}

// FieldMatch is the evidence one field contributes for a record pair.
type FieldMatch struct {
	Field      Field   `json:"field"`
	Similarity float64 `json:"similarity"`
	Value1     string  `json:"value1"`
	Value2     string  `json:"value2"`
}

// PairScore is the scored comparison of two records.
type PairScore struct {
	RecordA DonorRecord  `json:"recordA"`
	RecordB DonorRecord  `json:"recordB"`
	Score   int          `json:"score"`
	Matches []FieldMatch `json:"matches"`
}

// DuplicateGroup is one reported pair of a full scan.
type DuplicateGroup struct {
	RecordA DonorRecord  `json:"recordA"`
	RecordB DonorRecord  `json:"recordB"`
	Score   int          `json:"score"`
	Matches []FieldMatch `json:"matches"`
}
