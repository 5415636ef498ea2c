// Package shuffle produces per-student question orders that are stable
// across requests, devices and server restarts.
package shuffle

import (
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// Seed derives the 64-bit seed for an (exam, student) pair.
func Seed(examID, studentID string) uint64 {
	return xxhash.Sum64String(examID + ":" + studentID)
}

// Permutation returns a permutation of [0, n) that depends only on n and
// the (exam, student) pair. It shuffles with a PCG stream seeded from Seed,
// so the same inputs always yield the same order.
func Permutation(n int, examID, studentID string) []int {
	if n <= 0 {
		return []int{}
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	seed := Seed(examID, studentID)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(n, func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})
	return perm
}

// Apply returns a new slice holding items in the student's order.
// The input slice is not modified.
func Apply[T any](items []T, examID, studentID string) []T {
	perm := Permutation(len(items), examID, studentID)
	out := make([]T, len(items))
	for i, p := range perm {
		out[i] = items[p]
	}
	return out
}
