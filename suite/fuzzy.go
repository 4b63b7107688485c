package suite

const (
	FUZZY_MAX_SKEW  = 3 // Largest alignment shift tried, in either direction.
	FUZZY_TOLERANCE = 2 // Mismatches a passing comparison may contain.
)

// FuzzyMatch counts the positions of expected[:length] found in received at
// the best alignment. Each offset in [-FUZZY_MAX_SKEW, FUZZY_MAX_SKEW] shifts
// the received index; indices outside received never match.
func FuzzyMatch(expected []byte, received []byte, length int) (best int) {
	length = min(length, len(expected))

	for offset := -FUZZY_MAX_SKEW; offset <= FUZZY_MAX_SKEW; offset++ {
		count := 0
		for i := range length {
			n := i + offset
			if n >= 0 && n < len(received) && expected[i] == received[n] {
				count++
			}
		}
		best = max(best, count)
	}

	return
}

// FuzzyPass judges a match count over length characters.
func FuzzyPass(count int, length int) bool {
	return count >= length-FUZZY_TOLERANCE
}
