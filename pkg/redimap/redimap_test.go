package redimap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	config := DefaultConfig()
	config.Store.Type = "memory"
	client, err := NewClient(config)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func defineUsers(t *testing.T, client *Client) *Model {
	t.Helper()
	users, err := client.Define(ModelSpec{
		Name:   "user",
		AutoPK: true,
		Fields: []FieldSpec{
			{Name: "name", Type: FieldString, Unique: true},
			{Name: "age", Type: FieldString, Indexed: true, Index: IndexRange},
			{Name: "city", Type: FieldString, Indexed: true},
		},
	})
	require.NoError(t, err)
	return users
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	users := defineUsers(t, client)
	client.Freeze()

	require.NoError(t, client.Ping(ctx))

	// Create three users.
	pks := map[string]string{}
	for name, age := range map[string]int{"alice": 30, "bob": 25, "carol": 35} {
		user, err := users.Create(ctx, map[string]interface{}{"name": name, "age": age})
		require.NoError(t, err)
		pks[name] = user.PK()
	}

	count, err := users.Collection().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Exact filter.
	byName, err := users.Collection().Filter("name", "alice")
	require.NoError(t, err)
	members, err := byName.MemberIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{pks["alice"]}, members)

	// Range filter, sorted ascending.
	adults, err := users.Collection().Filter("age__gte", 30)
	require.NoError(t, err)
	sorted, err := adults.Sort("age", false)
	require.NoError(t, err)
	members, err = sorted.MemberIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{pks["alice"], pks["carol"]}, members)

	// Mutations are visible to re-executions of the same collection.
	alice, err := users.Get(ctx, pks["alice"])
	require.NoError(t, err)
	age, err := alice.Scalar("age")
	require.NoError(t, err)
	require.NoError(t, age.Set(ctx, 20))

	members, err = sorted.MemberIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{pks["carol"]}, members)

	// Deletion withdraws the pk from every filter.
	require.NoError(t, alice.Delete(ctx))
	count, err = users.Collection().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	byName, err = users.Collection().Filter("name", "alice")
	require.NoError(t, err)
	ok, err := byName.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUniquenessViolation(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	users := defineUsers(t, client)
	client.Freeze()

	_, err := users.Create(ctx, map[string]interface{}{"name": "alice", "age": 30})
	require.NoError(t, err)

	// The duplicate is rejected and rolled back: no half-written instance.
	_, err = users.Create(ctx, map[string]interface{}{"name": "alice", "age": 99})
	require.ErrorIs(t, err, ErrUniqueness)

	count, err := users.Collection().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDefineValidation(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Define(ModelSpec{Name: "bad"})
	assert.ErrorIs(t, err, ErrValidation)

	users := defineUsers(t, client)
	client.Freeze()

	_, err = client.Define(ModelSpec{
		Name:   "late",
		Fields: []FieldSpec{{Name: "f", Type: FieldString}},
	})
	assert.Error(t, err)

	got, err := client.Model("user")
	require.NoError(t, err)
	assert.Equal(t, users.Name(), got.Name())

	_, err = client.Model("ghost")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUnindexedFilter(t *testing.T) {
	client := newTestClient(t)
	users, err := client.Define(ModelSpec{
		Name:   "note",
		AutoPK: true,
		Fields: []FieldSpec{{Name: "body", Type: FieldString}},
	})
	require.NoError(t, err)
	client.Freeze()

	_, err = users.Collection().Filter("body", "x")
	assert.ErrorIs(t, err, ErrUnindexedField)
}

func TestInstances(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	users := defineUsers(t, client)
	client.Freeze()

	for name, age := range map[string]int{"alice": 30, "bob": 25} {
		_, err := users.Create(ctx, map[string]interface{}{"name": name, "age": age})
		require.NoError(t, err)
	}

	sorted, err := users.Collection().Sort("age", false)
	require.NoError(t, err)
	instances, err := sorted.Instances(ctx)
	require.NoError(t, err)
	require.Len(t, instances, 2)

	name, err := instances[0].Scalar("name")
	require.NoError(t, err)
	value, _, err := name.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", value)
}

func TestRebuildIndexes(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	users := defineUsers(t, client)
	client.Freeze()

	_, err := users.Create(ctx, map[string]interface{}{"name": "alice", "age": 30, "city": "paris"})
	require.NoError(t, err)
	_, err = users.Create(ctx, map[string]interface{}{"name": "bob", "age": 25, "city": "lyon"})
	require.NoError(t, err)

	// Wipe an index entry behind the engine's back, then repair it.
	require.NoError(t, client.store.Del(ctx, client.namer.IndexKey("user", "city", "paris")))

	broken, err := users.Collection().Filter("city", "paris")
	require.NoError(t, err)
	count, err := broken.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)

	stats, err := users.RebuildIndexes(ctx, DefaultRebuildConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 2, stats.Repaired)
	assert.Equal(t, 0, stats.Failed)

	count, err = broken.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
