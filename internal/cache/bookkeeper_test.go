package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store down")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store down")
}
func (failingStore) Del(context.Context, ...string) error { return errors.New("store down") }
func (failingStore) AddToSet(context.Context, string, string, time.Duration) error {
	return errors.New("store down")
}
func (failingStore) SetMembers(context.Context, string) ([]string, error) {
	return nil, errors.New("store down")
}

func TestGetOrComputeCachesValue(t *testing.T) {
	ctx := context.Background()
	b := NewBookkeeper(NewMemoryStore())

	calls := 0
	compute := func(context.Context) ([]string, error) {
		calls++
		return []string{"alpha", "beta"}, nil
	}

	key := Key(NamespaceEmployeeList, map[string]any{"page": 1})
	first, err := GetOrCompute(ctx, b, NamespaceEmployeeList, key, TTLList, compute)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta"}, first)

	second, err := GetOrCompute(ctx, b, NamespaceEmployeeList, key, TTLList, compute)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, calls, "second call should be served from cache")
}

func TestGetOrComputeDegradesWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	b := NewBookkeeper(failingStore{})

	value, err := GetOrCompute(ctx, b, NamespaceEmployeeList, "employees:list:x", TTLList,
		func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	require.Equal(t, 42, value)
}

func TestGetOrComputePropagatesComputeError(t *testing.T) {
	ctx := context.Background()
	b := NewBookkeeper(NewMemoryStore())

	wantErr := errors.New("query failed")
	_, err := GetOrCompute(ctx, b, NamespaceEmployeeList, "employees:list:y", TTLList,
		func(context.Context) (int, error) { return 0, wantErr })
	require.ErrorIs(t, err, wantErr)
}

func TestInvalidateNamespaceDropsTrackedKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	b := NewBookkeeper(store)

	k1 := Key(NamespaceEmployeeList, map[string]any{"page": 1})
	k2 := Key(NamespaceEmployeeList, map[string]any{"page": 2})
	other := EntityKey(NamespaceEmployeeEntity, "abc")

	require.NoError(t, b.Put(ctx, NamespaceEmployeeList, k1, "one", TTLList))
	require.NoError(t, b.Put(ctx, NamespaceEmployeeList, k2, "two", TTLList))
	require.NoError(t, b.Put(ctx, NamespaceEmployeeEntity, other, "entity", TTLEntity))

	require.NoError(t, b.InvalidateNamespace(ctx, NamespaceEmployeeList))

	var out string
	hit, err := b.Get(ctx, k1, &out)
	require.NoError(t, err)
	require.False(t, hit)
	hit, err = b.Get(ctx, k2, &out)
	require.NoError(t, err)
	require.False(t, hit)

	hit, err = b.Get(ctx, other, &out)
	require.NoError(t, err)
	require.True(t, hit, "other namespaces must survive")
	require.Equal(t, "entity", out)

	members, err := store.SetMembers(ctx, RegistryKey(NamespaceEmployeeList))
	require.NoError(t, err)
	require.Empty(t, members, "registry must be cleared with its keys")
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}
