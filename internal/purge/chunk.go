package purge

import "github.com/alfredjeanlab/misp-purge/internal/model"

// Partition splits ids into consecutive chunks of at most size elements,
// preserving order. It returns nil for an empty list. size must be > 0.
func Partition(ids []model.ID, size int) [][]model.ID {
	if size <= 0 {
		panic("purge: chunk size must be positive")
	}
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]model.ID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end:end])
	}
	return chunks
}
