package model

// Duplicate is a ranked match for a source record.
type Duplicate struct {
	Record  DonorRecord  `json:"record"`
	Score   int          `json:"score"`
	Matches []FieldMatch `json:"matches"`
}

// TargetResult is returned by a single-record lookup.
type TargetResult struct {
	SourceRecord DonorRecord `json:"sourceRecord"`
	Duplicates   []Duplicate `json:"duplicates"`
	TotalFound   int         `json:"totalFound"`
}

// ScanResult is returned by a full pairwise scan.
type ScanResult struct {
	DuplicateGroups     []DuplicateGroup `json:"duplicateGroups"`
	TotalFound          int              `json:"totalFound"`
	TotalRecordsScanned int              `json:"totalRecordsScanned"`
}

// BatchEntry holds the matches found for one import candidate.
type BatchEntry struct {
	Index      int         `json:"index"`
	Candidate  DonorRecord `json:"candidate"`
	Duplicates []Duplicate `json:"duplicates"`
}

// BatchResult is returned by an import pre-check.
type BatchResult struct {
	DuplicatesFound int          `json:"duplicatesFound"`
	TotalChecked    int          `json:"totalChecked"`
	Results         []BatchEntry `json:"results"`
}
