// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package lrucache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPositiveSize(t *testing.T) {
	t.Parallel()

	_, err := New(0, false)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = New(-1, true)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestAddGetRemove(t *testing.T) {
	t.Parallel()

	cache, err := New(4, false)
	require.NoError(t, err)

	cache.Add("a", 1)
	cache.Add("b", 2)

	v, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.True(t, cache.Remove("a"))
	assert.False(t, cache.Remove("a"))

	_, ok = cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	cache, err := New(2, false)
	require.NoError(t, err)

	assert.False(t, cache.Add("a", 1))
	assert.False(t, cache.Add("b", 2))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := cache.Get("a")
	require.True(t, ok)

	assert.True(t, cache.Add("c", 3))

	_, ok = cache.Get("b")
	assert.False(t, ok)

	_, ok = cache.Get("a")
	assert.True(t, ok)
}

func TestUpdateExistingKeyDoesNotEvict(t *testing.T) {
	t.Parallel()

	cache, err := New(2, false)
	require.NoError(t, err)

	cache.Add("a", 1)
	cache.Add("b", 2)

	assert.False(t, cache.Add("a", 10))

	v, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestCompressionRoundTrip(t *testing.T) {
	t.Parallel()

	cache, err := New(4, true)
	require.NoError(t, err)

	// Highly repetitive payloads compress well.
	payload := strings.Repeat("bonjour le monde ", 200)

	cache.Add("str", payload)
	cache.Add("bytes", []byte(payload))
	cache.Add("tiny", "x") // too small to benefit, stored as-is
	cache.Add("other", 42) // non-string values pass through untouched

	v, ok := cache.Get("str")
	require.True(t, ok)
	assert.Equal(t, payload, v)

	b, ok := cache.Get("bytes")
	require.True(t, ok)
	assert.Equal(t, []byte(payload), b)

	v, ok = cache.Get("tiny")
	require.True(t, ok)
	assert.Equal(t, "x", v)

	v, ok = cache.Get("other")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestGetReturnsDefensiveCopy(t *testing.T) {
	t.Parallel()

	cache, err := New(2, false)
	require.NoError(t, err)

	cache.Add("k", []byte("abc"))

	first, ok := cache.Get("k")
	require.True(t, ok)

	raw, ok := first.([]byte)
	require.True(t, ok)
	raw[0] = 'z'

	second, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), second)
}

func TestRangeVisitsMostRecentFirst(t *testing.T) {
	t.Parallel()

	cache, err := New(4, false)
	require.NoError(t, err)

	cache.Add("a", 1)
	cache.Add("b", 2)
	cache.Add("c", 3)

	var keys []string

	cache.Range(func(key string, _ any) bool {
		keys = append(keys, key)

		return true
	})

	assert.Equal(t, []string{"c", "b", "a"}, keys)

	// Early termination.
	keys = keys[:0]

	cache.Range(func(key string, _ any) bool {
		keys = append(keys, key)

		return false
	})

	assert.Equal(t, []string{"c"}, keys)
}
