/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute)

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, c.Set("key1", "value1", time.Minute))
		assert.Equal(t, "value1", c.Get("key1"))
		assert.True(t, c.Has("key1"))
		assert.Nil(t, c.Get("missing"))
		assert.False(t, c.Has("missing"))
	})

	t.Run("Expiration", func(t *testing.T) {
		require.NoError(t, c.Set("short", "v", 20*time.Millisecond))
		assert.True(t, c.Has("short"))
		time.Sleep(50 * time.Millisecond)
		assert.False(t, c.Has("short"))
		assert.Nil(t, c.Get("short"))
	})

	t.Run("NoExpiration", func(t *testing.T) {
		require.NoError(t, c.Set("forever", 1, 0))
		assert.Equal(t, 1, c.Get("forever"))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, c.Set("key1", "value1", time.Minute))
		require.NoError(t, c.Delete("key1"))
		assert.False(t, c.Has("key1"))
	})

	t.Run("DeleteByPrefix", func(t *testing.T) {
		require.NoError(t, c.Set("prefix_key1", "value1", time.Minute))
		require.NoError(t, c.Set("prefix_key2", "value2", time.Minute))
		require.NoError(t, c.Set("other_key", "value3", time.Minute))

		require.NoError(t, c.DeleteByPrefix("prefix_"))
		assert.Nil(t, c.Get("prefix_key1"))
		assert.Nil(t, c.Get("prefix_key2"))
		assert.Equal(t, "value3", c.Get("other_key"))
	})
}

func TestMemoryCacheGC(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	c.StartGC()
	c.StartGC()
	defer func() {
		require.NoError(t, c.Close())
	}()

	require.NoError(t, c.Set("a", 1, 5*time.Millisecond))
	require.NoError(t, c.Set("b", 2, 0))
	assert.Eventually(t, func() bool {
		return c.Len() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, c.Get("b"))
}

func TestStopGCWithoutStart(t *testing.T) {
	c := NewMemoryCache(0)
	assert.NotPanics(t, c.StopGC)
	assert.Equal(t, DefaultGCInterval, c.gcInterval)
}

func TestNamespaceCache(t *testing.T) {
	shared := NewMemoryCache(time.Minute)
	a := NewNamespaceCache(shared, "a:")
	b := NewNamespaceCache(shared, "b:")

	require.NoError(t, a.Set("k", "from-a", 0))
	require.NoError(t, b.Set("k", "from-b", 0))
	assert.Equal(t, "from-a", a.Get("k"))
	assert.Equal(t, "from-b", b.Get("k"))
	assert.Equal(t, "from-a", shared.Get("a:k"))

	require.NoError(t, a.DeleteByPrefix(""))
	assert.False(t, a.Has("k"))
	assert.True(t, b.Has("k"))
	assert.Equal(t, 1, b.Len())

	require.NoError(t, b.Delete("k"))
	assert.Equal(t, 0, shared.Len())
}
