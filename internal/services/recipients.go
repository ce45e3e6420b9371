package services

// Recipients returns candidates without zero IDs, duplicates or exclude,
// keeping first-seen order.
func Recipients(candidates []uint64, exclude uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(candidates))
	result := make([]uint64, 0, len(candidates))

	for _, id := range candidates {
		if id == 0 || id == exclude {
			continue
		}
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}

	return result
}
