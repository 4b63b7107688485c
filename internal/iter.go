package internal

import (
	"iter"
)

// Chain2 yields every pair of each sequence in turn. A key seen in an earlier
// sequence is not yielded again, so earlier sequences override later ones.
func Chain2[K comparable, V any](seqs ...iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		seen := map[K]struct{}{}
		for _, seq := range seqs {
			for key, value := range seq {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				if !yield(key, value) {
					return
				}
			}
		}
	}
}
