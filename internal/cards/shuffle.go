package cards

import "math/rand"

// Shuffle permutes deck in place using a PRNG seeded with seed, generalizing
// the teacher's time-seeded ShuffleDeck to the spec's requirement that the
// seed be a free parameter (random for normal play, fixed for determinism
// tests — spec.md §4.4, §8 property 1).
func Shuffle(deck []Card, seed int64) {
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}
