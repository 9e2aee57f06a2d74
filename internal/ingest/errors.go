package ingest

import "errors"

// Sentinel errors marking which pipeline stage failed. Check with errors.Is().
// All of them leave no partial record behind; blobs already uploaded when a
// later stage fails are accepted as orphans.
var (
	ErrNoMedia    = errors.New("no media locators provided")
	ErrFetch      = errors.New("media fetch failed")
	ErrStorage    = errors.New("media storage failed")
	ErrExtraction = errors.New("text extraction failed")
	ErrEmbedding  = errors.New("embedding failed")
	ErrPersist    = errors.New("record persistence failed")
)
