package service

import "hash/fnv"

// anonymousKey stands in for callers without a tracked identity so repeated
// anonymous evaluations of the same flag stay consistent.
const anonymousKey = "anonymous"

// bucket maps a (flag, user) pair onto [0,100). The hash depends only on its
// inputs, so a given user always lands in the same bucket for a given flag
// regardless of wall-clock time or call order.
func bucket(flagName, key string) int {
	if key == "" {
		key = anonymousKey
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(flagName))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % 100)
}
