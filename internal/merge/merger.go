package merge

// Merger defines the interface for merge strategies
type Merger interface {
	// Merge applies the merge operation
	// original: the original JSON document
	// patch: the patch data to merge
	// ptr: JSON pointer the patch is scoped to ("" or "/" means root document)
	// Returns: the merged result
	Merge(original, patch []byte, ptr string) ([]byte, error)
}
