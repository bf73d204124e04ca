package port

import "context"

// EvidenceFile is one prioritized repository file handed to the classifier.
type EvidenceFile struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// EvidencePack is the bounded set of evidence the extractor produces and the
// classifier consumes. AllDependencyNames is the union of every dependency
// declared in every manifest in the tree, not limited to the file cap, so no
// dependency is dropped solely because its manifest missed the cut.
type EvidencePack struct {
	FoundFiles         []string       `json:"found_files"`
	AllDependencyNames []string       `json:"all_dependency_names"`
	FileContents       []EvidenceFile `json:"file_contents"`
}

// RawEvidence is an untrusted evidence entry from the classifier.
type RawEvidence struct {
	FilePath string `json:"file_path"`
	Snippet  string `json:"snippet"`
}

// RawComponent is an untrusted component entry from the classifier. Fields
// are pointers or zero-tolerant so absence never fails the envelope parse;
// the validator decides what to repair and what to drop.
type RawComponent struct {
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Version     *string       `json:"version"`
	Confidence  *float64      `json:"confidence"`
	Description string        `json:"description"`
	Evidence    []RawEvidence `json:"evidence"`
}

// Classifier sends an evidence pack to the external classification service
// and returns its candidate component list. Any transport, schema, or decode
// problem surfaces as a single error; retries are a job-level concern.
type Classifier interface {
	Classify(ctx context.Context, pack EvidencePack) ([]RawComponent, error)
}
