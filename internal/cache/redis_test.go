package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/menu-planner/internal/domain"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestKey(t *testing.T) {
	req := domain.PlanRequest{TargetServings: 8, StoreSlugs: []string{"storeA"}}

	a, err := Key("v1", req)
	require.NoError(t, err)
	b, err := Key("v1", req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a, keyPrefix)

	c, err := Key("v2", req)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	req.TargetServings = 10
	d, err := Key("v1", req)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestGetSet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	res, found, err := c.Get(ctx, "plan:missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, res)

	want := &domain.PlanResult{
		Status:    domain.StatusOptimal,
		Objective: 5.2,
		Recipes:   []domain.ChosenRecipe{{RecipeID: 2, Name: "Omelette", Batches: 4}},
	}
	require.NoError(t, c.Set(ctx, "plan:abc", want, time.Time{}))

	got, found, err := c.Get(ctx, "plan:abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want.Objective, got.Objective)
	assert.Equal(t, want.Recipes, got.Recipes)

	mr.FastForward(2 * time.Minute)
	_, found, err = c.Get(ctx, "plan:abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetCapsTTLAtExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	res := &domain.PlanResult{Status: domain.StatusOptimal}

	require.NoError(t, c.Set(ctx, "plan:soon", res, now.Add(20*time.Second)))
	assert.Equal(t, 20*time.Second, mr.TTL("plan:soon"))

	require.NoError(t, c.Set(ctx, "plan:later", res, now.Add(time.Hour)))
	assert.Equal(t, time.Minute, mr.TTL("plan:later"))

	require.NoError(t, c.Set(ctx, "plan:stale", res, now.Add(-time.Second)))
	assert.False(t, mr.Exists("plan:stale"))

	mr.FastForward(21 * time.Second)
	_, found, err := c.Get(ctx, "plan:soon")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = c.Get(ctx, "plan:later")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestGetCorrupt(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("plan:bad", "{not json"))

	_, found, err := c.Get(context.Background(), "plan:bad")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestClear(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "plan:one", &domain.PlanResult{Status: domain.StatusOptimal}, time.Time{}))
	require.NoError(t, c.Set(ctx, "plan:two", &domain.PlanResult{Status: domain.StatusInfeasible}, time.Time{}))
	require.NoError(t, mr.Set("other", "kept"))

	require.NoError(t, c.Clear(ctx))
	assert.False(t, mr.Exists("plan:one"))
	assert.False(t, mr.Exists("plan:two"))
	assert.True(t, mr.Exists("other"))
	assert.NoError(t, c.Ping(ctx))
}

func TestCacheable(t *testing.T) {
	assert.True(t, Cacheable(&domain.PlanResult{Status: domain.StatusOptimal}))
	assert.True(t, Cacheable(&domain.PlanResult{Status: domain.StatusInfeasible}))
	assert.False(t, Cacheable(&domain.PlanResult{Status: domain.StatusTimedOut}))
	assert.False(t, Cacheable(&domain.PlanResult{Status: domain.StatusNotSolved}))
}
