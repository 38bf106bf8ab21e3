// Package paging implements page/pageSize windows over in-memory lists.
package paging

// Normalize clamps page to at least 1 and pageSize to [1, maxSize],
// substituting def for a missing page size.
func Normalize(page, pageSize, def, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = def
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}

// Slice returns the records on the given 1-based page
func Slice[T any](records []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(records) {
		return []T{}
	}
	end := min(start+pageSize, len(records))
	return records[start:end]
}
