package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketDeterministic(t *testing.T) {
	first := bucket("new_dashboard", "user_123")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, bucket("new_dashboard", "user_123"))
	}
}

func TestBucketRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		b := bucket("bulk_payments", fmt.Sprintf("user_%d", i))
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 100)
	}
}

func TestBucketSpreadsAcrossKeys(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		seen[bucket("marketplace_analytics", fmt.Sprintf("user_%d", i))] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestBucketAnonymousKey(t *testing.T) {
	// Empty key callers share one stable bucket.
	assert.Equal(t, bucket("bizgenie_chat", anonymousKey), bucket("bizgenie_chat", ""))
	assert.Equal(t, bucket("bizgenie_chat", ""), bucket("bizgenie_chat", ""))
}

func TestBucketDependsOnFlagName(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 100; i++ {
		seen[bucket(fmt.Sprintf("flag_%d", i), "user_123")] = true
	}
	assert.Greater(t, len(seen), 1)
}
