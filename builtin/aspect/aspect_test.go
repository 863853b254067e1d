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

package aspect

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rulego/weave/aop"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/test"
	"github.com/rulego/weave/utils/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newProxy(t *testing.T, target interface{}, advice ...interface{}) *aop.Proxy {
	t.Helper()
	factory := aop.NewProxyFactory(target)
	for _, a := range advice {
		require.NoError(t, factory.AddAdvice(a))
	}
	proxy, err := factory.Proxy()
	require.NoError(t, err)
	return proxy
}

var waitOp = types.NewOperation("Blocking", "Wait", reflect.TypeOf(""))

// blocking holds every call until release is closed.
type blocking struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blocking) Capabilities() []types.Capability {
	return []types.Capability{{Name: "Blocking", Operations: []types.Operation{waitOp}}}
}

func (b *blocking) Invoke(ctx context.Context, op types.Operation, args ...interface{}) (interface{}, error) {
	b.entered <- struct{}{}
	<-b.release
	return "done", nil
}

func TestDebug(t *testing.T) {
	logger := test.NewLogger()
	debug := &Debug{}
	require.NoError(t, debug.Init(test.NewConfig(types.WithLogger(logger)), types.Configuration{"pointcut": `name == "Query"`}))
	assert.Equal(t, DebugOrder, debug.Order())

	proxy := newProxy(t, test.NewUserService("alice"), debug)
	_, err := proxy.Invoke(context.Background(), test.QueryOp, 1)
	require.NoError(t, err)
	_, err = proxy.Invoke(context.Background(), test.CountOp)
	require.NoError(t, err)

	assert.True(t, logger.Contains("[In] UserService.Query"))
	assert.True(t, logger.Contains("result=alice"))
	assert.False(t, logger.Contains("UserService.Count"))
}

func TestDebugCallback(t *testing.T) {
	journal := test.NewJournal()
	debug := &Debug{OnDebug: func(ctx context.Context, flow string, jp types.JoinPoint, result interface{}, err error) {
		journal.Record(flow + ":" + jp.Operation().Name)
	}}
	require.NoError(t, debug.Init(test.NewConfig(), types.Configuration{"order": 5}))
	assert.Equal(t, 5, debug.Order())

	proxy := newProxy(t, test.NewUserService("alice"), debug)
	_, err := proxy.Invoke(context.Background(), test.QueryOp, 7)
	assert.True(t, errors.Is(err, test.ErrUserNotFound))
	assert.Equal(t, []string{"In:Query", "Out:Query"}, journal.Entries())
}

func TestLimiter(t *testing.T) {
	limiter := &Limiter{}
	require.NoError(t, limiter.Init(test.NewConfig(), types.Configuration{"max": "2"}))
	assert.Equal(t, int64(2), limiter.Max)
	assert.Equal(t, LimiterOrder, limiter.Order())

	target := &blocking{entered: make(chan struct{}), release: make(chan struct{})}
	proxy := newProxy(t, target, limiter)

	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := proxy.Invoke(context.Background(), waitOp)
			return err
		})
	}
	<-target.entered
	<-target.entered
	assert.Equal(t, int64(2), limiter.Current())

	_, err := proxy.Invoke(context.Background(), waitOp)
	assert.True(t, errors.Is(err, types.ErrConcurrencyLimitReached))

	close(target.release)
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(0), limiter.Current())
}

func TestLimiterPointcut(t *testing.T) {
	limiter := NewLimiter(1)
	require.NoError(t, limiter.Init(test.NewConfig(), types.Configuration{"pointcut": `owner == "Calculator"`}))
	assert.Equal(t, int64(1), limiter.Max)

	target := &blocking{entered: make(chan struct{}, 2), release: make(chan struct{})}
	close(target.release)
	proxy := newProxy(t, target, limiter)
	_, err := proxy.Invoke(context.Background(), waitOp)
	require.NoError(t, err)
	assert.Equal(t, int64(0), limiter.Current())
}

func TestLimiterInvalidConfig(t *testing.T) {
	assert.Error(t, (&Limiter{}).Init(test.NewConfig(), nil))
	assert.Error(t, (&Limiter{}).Init(test.NewConfig(), types.Configuration{"max": 1, "pointcut": "name =="}))
}

func TestMetrics(t *testing.T) {
	m := &Metrics{}
	require.NoError(t, m.Init(test.NewConfig(), nil))
	assert.Equal(t, MetricsOrder, m.Order())

	proxy := newProxy(t, test.NewUserService("alice"), m)
	_, err := proxy.Invoke(context.Background(), test.QueryOp, 1)
	require.NoError(t, err)
	_, err = proxy.Invoke(context.Background(), test.QueryOp, 2)
	require.Error(t, err)

	s := m.GetMetrics().Get()
	assert.Equal(t, int64(0), s.Current)
	assert.Equal(t, int64(2), s.Total)
	assert.Equal(t, int64(1), s.Success)
	assert.Equal(t, int64(1), s.Failed)
}

func TestMetricsShared(t *testing.T) {
	shared := NewMetrics(nil)
	first := newProxy(t, test.NewUserService(), shared)
	second := newProxy(t, &test.Calculator{}, shared)
	_, err := first.Invoke(context.Background(), test.CountOp)
	require.NoError(t, err)
	_, err = second.Invoke(context.Background(), test.AddOp, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), shared.GetMetrics().Get().Total)
}

func TestCache(t *testing.T) {
	c := NewCache(nil, 0)
	service := test.NewUserService("alice", "bob")
	proxy := newProxy(t, service, c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		name, err := proxy.Invoke(ctx, test.QueryOp, 1)
		require.NoError(t, err)
		assert.Equal(t, "alice", name)
	}
	assert.Equal(t, int64(1), service.Calls())

	name, err := proxy.Invoke(ctx, test.QueryOp, 2)
	require.NoError(t, err)
	assert.Equal(t, "bob", name)
	assert.Equal(t, int64(2), service.Calls())

	// failed calls are not cached
	for i := 0; i < 2; i++ {
		_, err = proxy.Invoke(ctx, test.QueryOp, 9)
		assert.True(t, errors.Is(err, test.ErrUserNotFound))
	}
	assert.Equal(t, int64(4), service.Calls())

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(4), misses)

	require.NoError(t, c.Evict())
	_, err = proxy.Invoke(ctx, test.QueryOp, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), service.Calls())
	require.NoError(t, c.Destroy())
}

func TestCacheKeyedByTarget(t *testing.T) {
	c := NewCache(nil, 0)
	alice, carol := test.NewUserService("alice"), test.NewUserService("carol")
	aliceProxy, carolProxy := newProxy(t, alice, c), newProxy(t, carol, c)
	ctx := context.Background()

	name, err := aliceProxy.Invoke(ctx, test.QueryOp, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
	name, err = carolProxy.Invoke(ctx, test.QueryOp, 1)
	require.NoError(t, err)
	assert.Equal(t, "carol", name)
	assert.Equal(t, int64(1), carol.Calls())

	name, err = aliceProxy.Invoke(ctx, test.QueryOp, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
	assert.Equal(t, int64(1), alice.Calls())
	require.NoError(t, c.Destroy())
}

func TestCacheSkipsOperationsWithoutValue(t *testing.T) {
	c := NewCache(nil, 0)
	service := test.NewUserService()
	proxy := newProxy(t, service, c)
	for i := 0; i < 2; i++ {
		_, err := proxy.Invoke(context.Background(), test.SaveOp, "carol")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"carol", "carol"}, service.Names())
}

func TestCacheSharedStore(t *testing.T) {
	store := cache.NewMemoryCache(0)
	c := &Cache{}
	c.SetName("users")
	require.NoError(t, c.Init(test.NewConfig(types.WithCache(store)), types.Configuration{"ttl": "20ms"}))
	assert.Equal(t, 20*time.Millisecond, c.TTL)

	service := test.NewUserService("alice")
	proxy := newProxy(t, service, c)
	_, err := proxy.Invoke(context.Background(), test.CountOp)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	_, err = proxy.Invoke(context.Background(), test.CountOp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), service.Calls())

	time.Sleep(40 * time.Millisecond)
	_, err = proxy.Invoke(context.Background(), test.CountOp)
	require.NoError(t, err)
	assert.Equal(t, int64(2), service.Calls())

	require.NoError(t, store.Set("other", 1, 0))
	require.NoError(t, c.Evict())
	assert.True(t, store.Has("other"))
	assert.Equal(t, 1, store.Len())
	require.NoError(t, c.Destroy())
}

func TestCacheOwnedStore(t *testing.T) {
	c := &Cache{}
	require.NoError(t, c.Init(test.NewConfig(), nil))
	assert.Equal(t, CacheOrder, c.Order())
	require.NoError(t, c.Destroy())
	assert.Error(t, (&Cache{}).Init(test.NewConfig(), types.Configuration{"ttl": "-1s"}))
}

func TestCacheEvictSchedule(t *testing.T) {
	c := &Cache{}
	require.NoError(t, c.Init(test.NewConfig(), types.Configuration{"evictSchedule": "* * * * * *"}))
	service := test.NewUserService("alice")
	proxy := newProxy(t, service, c)
	_, err := proxy.Invoke(context.Background(), test.CountOp)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, err := proxy.Invoke(context.Background(), test.CountOp)
		return err == nil && service.Calls() == 2
	}, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, c.Destroy())

	invalid := &Cache{}
	assert.Error(t, invalid.Init(test.NewConfig(), types.Configuration{"evictSchedule": "every day"}))
	require.NoError(t, invalid.Destroy())
}

func TestFallback(t *testing.T) {
	now := time.Unix(100, 0)
	fallback := &Fallback{now: func() time.Time { return now }}
	require.NoError(t, fallback.Init(test.NewConfig(), types.Configuration{"errorCountLimit": 2, "limitDuration": "1s"}))
	assert.Equal(t, FallbackOrder, fallback.Order())

	service := test.NewUserService("alice")
	proxy := newProxy(t, service, fallback)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := proxy.Invoke(ctx, test.QueryOp, 9)
		assert.True(t, errors.Is(err, test.ErrUserNotFound))
	}
	assert.Equal(t, int64(2), fallback.ErrorCount(service, test.QueryOp))

	_, err := proxy.Invoke(ctx, test.QueryOp, 1)
	assert.True(t, errors.Is(err, ErrFallback))
	assert.Equal(t, int64(2), service.Calls())

	// other operations are not affected
	_, err = proxy.Invoke(ctx, test.CountOp)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	name, err := proxy.Invoke(ctx, test.QueryOp, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
	assert.Equal(t, int64(0), fallback.ErrorCount(service, test.QueryOp))
}

func TestFallbackSuccessResets(t *testing.T) {
	fallback := NewFallback(0, 0)
	assert.Equal(t, int64(3), fallback.ErrorCountLimit)
	assert.Equal(t, 10*time.Second, fallback.LimitDuration)

	service := test.NewUserService("alice")
	proxy := newProxy(t, service, fallback)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := proxy.Invoke(ctx, test.QueryOp, 9)
		assert.True(t, errors.Is(err, test.ErrUserNotFound))
		_, err = proxy.Invoke(ctx, test.QueryOp, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(0), fallback.ErrorCount(service, test.QueryOp))

	for i := 0; i < 3; i++ {
		_, _ = proxy.Invoke(ctx, test.QueryOp, 9)
	}
	_, err := proxy.Invoke(ctx, test.QueryOp, 1)
	assert.True(t, errors.Is(err, ErrFallback))
	fallback.Reset()
	_, err = proxy.Invoke(ctx, test.QueryOp, 1)
	require.NoError(t, err)

	assert.Error(t, (&Fallback{}).Init(test.NewConfig(), types.Configuration{"errorCountLimit": -1}))
}

func TestFallbackKeyedByTarget(t *testing.T) {
	fallback := NewFallback(2, time.Minute)
	failing, healthy := test.NewUserService(), test.NewUserService("carol")
	failingProxy, healthyProxy := newProxy(t, failing, fallback), newProxy(t, healthy, fallback)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := failingProxy.Invoke(ctx, test.QueryOp, 1)
		assert.True(t, errors.Is(err, test.ErrUserNotFound))
	}
	_, err := failingProxy.Invoke(ctx, test.QueryOp, 1)
	assert.True(t, errors.Is(err, ErrFallback))
	assert.Equal(t, int64(2), fallback.ErrorCount(failing, test.QueryOp))

	name, err := healthyProxy.Invoke(ctx, test.QueryOp, 1)
	require.NoError(t, err)
	assert.Equal(t, "carol", name)
	assert.Equal(t, int64(0), fallback.ErrorCount(healthy, test.QueryOp))
}

func TestAspectMetadataIsResolvable(t *testing.T) {
	for _, component := range []types.AspectComponent{&Debug{}, &Limiter{}, &Metrics{}, &Cache{}, &Fallback{}} {
		metadata := component.AspectMetadata()
		assert.Equal(t, types.SingletonModel, metadata.Model)
		assert.NotEmpty(t, metadata.Advice)
		assert.Equal(t, metadata.Order, types.OrderOf(component))
	}
}
