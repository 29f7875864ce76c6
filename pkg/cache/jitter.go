package cache

import "math/rand"

// JitterTTL perturbs baseSeconds by up to ±ratio, drawn uniformly from
// the closed interval [base-window, base+window] where window is
// floor(base*ratio). A fresh value is drawn on every call so that entries
// written together do not expire together.
func JitterTTL(baseSeconds int, ratio float64) int {
	window := int(float64(baseSeconds) * ratio)
	if window <= 0 {
		return baseSeconds
	}
	return baseSeconds - window + rand.Intn(2*window+1)
}
