package object

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/redimap/internal/core"
	"github.com/rzpsarthak13/redimap/internal/keys"
	"github.com/rzpsarthak13/redimap/internal/kvstore"
	"github.com/rzpsarthak13/redimap/internal/model"
)

type fixture struct {
	store core.Store
	namer *keys.Namer
	def   *model.Definition
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kvstore.NewMemoryStore()
	namer := keys.NewNamer("")
	registry := model.NewRegistry(store, namer, time.Minute)
	def, err := registry.Register(model.Spec{
		Name:   "user",
		AutoPK: true,
		Fields: []model.FieldSpec{
			{Name: "name", Type: core.FieldString, Unique: true},
			{Name: "age", Type: core.FieldString, Indexed: true, Index: core.IndexRange},
			{Name: "bio", Type: core.FieldString},
			{Name: "tags", Type: core.FieldSet, Indexed: true},
			{Name: "visits", Type: core.FieldList, Indexed: true},
			{Name: "prefs", Type: core.FieldHash, Indexed: true},
			{Name: "scores", Type: core.FieldSortedSet, Indexed: true},
		},
	})
	require.NoError(t, err)
	return &fixture{store: store, namer: namer, def: def}
}

func (f *fixture) indexed(t *testing.T, ctx context.Context, field, value, pk string) bool {
	t.Helper()
	ok, err := f.store.SIsMember(ctx, f.namer.IndexKey("user", field, value), pk)
	require.NoError(t, err)
	return ok
}

func TestNewAutoPK(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := New(ctx, f.store, f.namer, f.def)
	require.NoError(t, err)
	second, err := New(ctx, f.store, f.namer, f.def)
	require.NoError(t, err)

	assert.Equal(t, "1", first.PK())
	assert.Equal(t, "2", second.PK())
	assert.Equal(t, "user", first.Model())

	ok, err := Exists(ctx, f.store, f.namer, f.def, "1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Explicit pks are rejected on auto-pk models.
	_, err = NewWithPK(ctx, f.store, f.namer, f.def, "9")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestNewWithPK(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	namer := keys.NewNamer("")
	registry := model.NewRegistry(store, namer, time.Minute)
	def, err := registry.Register(model.Spec{
		Name:   "account",
		Fields: []model.FieldSpec{{Name: "label", Type: core.FieldString}},
	})
	require.NoError(t, err)

	inst, err := NewWithPK(ctx, store, namer, def, "acc-7")
	require.NoError(t, err)
	assert.Equal(t, "acc-7", inst.PK())

	_, err = NewWithPK(ctx, store, namer, def, "acc-7")
	assert.ErrorIs(t, err, core.ErrUniqueness)

	_, err = NewWithPK(ctx, store, namer, def, "")
	assert.ErrorIs(t, err, core.ErrValidation)

	// Pks normalize like field values: int 7 and string "7" are one pk.
	_, err = NewWithPK(ctx, store, namer, def, 12)
	require.NoError(t, err)
	_, err = NewWithPK(ctx, store, namer, def, "12")
	assert.ErrorIs(t, err, core.ErrUniqueness)

	_, err = New(ctx, store, namer, def)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestPKEqualToFieldName(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	namer := keys.NewNamer("")
	registry := model.NewRegistry(store, namer, time.Minute)
	def, err := registry.Register(model.Spec{
		Name: "user",
		Fields: []model.FieldSpec{
			{Name: "name", Type: core.FieldString, Indexed: true},
			{Name: "age", Type: core.FieldString},
		},
	})
	require.NoError(t, err)

	// An instance whose pk matches a field name writes its data keys in the
	// object family, out of reach of any index entry.
	first, err := NewWithPK(ctx, store, namer, def, "name")
	require.NoError(t, err)
	age, err := first.Scalar("age")
	require.NoError(t, err)
	require.NoError(t, age.Set(ctx, 77))

	second, err := NewWithPK(ctx, store, namer, def, "2")
	require.NoError(t, err)
	name, err := second.Scalar("name")
	require.NoError(t, err)
	require.NoError(t, name.Set(ctx, "age"))

	ok, err := store.SIsMember(ctx, namer.IndexKey("user", "name", "age"), "2")
	require.NoError(t, err)
	assert.True(t, ok)

	value, ok, err := age.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "77", value)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := New(ctx, f.store, f.namer, f.def)
	require.NoError(t, err)

	loaded, err := Load(ctx, f.store, f.namer, f.def, created.PK())
	require.NoError(t, err)
	assert.Equal(t, created.PK(), loaded.PK())

	_, err = Load(ctx, f.store, f.namer, f.def, "999")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFieldTypeMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, err := New(ctx, f.store, f.namer, f.def)
	require.NoError(t, err)

	_, err = inst.Set("name")
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = inst.Scalar("tags")
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = inst.Scalar("nope")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestScalarSetGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	bio, err := inst.Scalar("bio")
	require.NoError(t, err)

	_, ok, err := bio.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, bio.Set(ctx, "hello"))
	value, ok, err := bio.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", value)

	// Normalization is type-insensitive for equivalent values.
	require.NoError(t, bio.Set(ctx, 42))
	value, _, _ = bio.Get(ctx)
	assert.Equal(t, "42", value)

	require.NoError(t, bio.Delete(ctx))
	_, ok, _ = bio.Get(ctx)
	assert.False(t, ok)
}

func TestScalarIndexMaintenance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	name, _ := inst.Scalar("name")
	require.NoError(t, name.Set(ctx, "alice"))
	assert.True(t, f.indexed(t, ctx, "name", "alice", inst.PK()))

	// Overwrite moves the pk to the new value's entry.
	require.NoError(t, name.Set(ctx, "alicia"))
	assert.False(t, f.indexed(t, ctx, "name", "alice", inst.PK()))
	assert.True(t, f.indexed(t, ctx, "name", "alicia", inst.PK()))

	require.NoError(t, name.Delete(ctx))
	assert.False(t, f.indexed(t, ctx, "name", "alicia", inst.PK()))
}

func TestScalarUniqueness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, _ := New(ctx, f.store, f.namer, f.def)
	b, _ := New(ctx, f.store, f.namer, f.def)

	nameA, _ := a.Scalar("name")
	require.NoError(t, nameA.Set(ctx, "alice"))

	nameB, _ := b.Scalar("name")
	err := nameB.Set(ctx, "alice")
	assert.ErrorIs(t, err, core.ErrUniqueness)

	// The failed write left nothing behind.
	_, ok, _ := nameB.Get(ctx)
	assert.False(t, ok)

	// Rewriting its own value is not a violation.
	require.NoError(t, nameA.Set(ctx, "alice"))
}

func TestScalarRangeValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	age, _ := inst.Scalar("age")
	err := age.Set(ctx, "abc")
	require.Error(t, err)
	_, ok, _ := age.Get(ctx)
	assert.False(t, ok, "rejected value must not be written")

	require.NoError(t, age.Set(ctx, 30))
	score, ok, err := f.store.ZScore(ctx, f.namer.RangeIndexKey("user", "age"), inst.PK())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30.0, score)
}

func TestScalarIncr(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	age, _ := inst.Scalar("age")
	require.NoError(t, age.Set(ctx, 30))

	val, err := age.Incr(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(31), val)

	score, _, _ := f.store.ZScore(ctx, f.namer.RangeIndexKey("user", "age"), inst.PK())
	assert.Equal(t, 31.0, score)
}

func TestScalarIncrUniqueness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, _ := New(ctx, f.store, f.namer, f.def)
	b, _ := New(ctx, f.store, f.namer, f.def)

	nameA, _ := a.Scalar("name")
	require.NoError(t, nameA.Set(ctx, 5))
	nameB, _ := b.Scalar("name")
	require.NoError(t, nameB.Set(ctx, 4))

	// Incrementing into another instance's value is a violation, and the
	// rejected increment leaves value and index untouched.
	_, err := nameB.Incr(ctx)
	assert.ErrorIs(t, err, core.ErrUniqueness)
	value, _, _ := nameB.Get(ctx)
	assert.Equal(t, "4", value)
	assert.True(t, f.indexed(t, ctx, "name", "4", b.PK()))

	// With the collision gone the increment goes through.
	require.NoError(t, nameA.Set(ctx, 9))
	val, err := nameB.Incr(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), val)
	assert.True(t, f.indexed(t, ctx, "name", "5", b.PK()))
}

func TestSetFieldIndexing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	tags, err := inst.Set("tags")
	require.NoError(t, err)

	added, err := tags.Add(ctx, "go", "redis")
	require.NoError(t, err)
	assert.Equal(t, int64(2), added)

	// Every member gets its own index entry.
	assert.True(t, f.indexed(t, ctx, "tags", "go", inst.PK()))
	assert.True(t, f.indexed(t, ctx, "tags", "redis", inst.PK()))

	members, _ := tags.Members(ctx)
	assert.ElementsMatch(t, []string{"go", "redis"}, members)

	removed, err := tags.Rem(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.False(t, f.indexed(t, ctx, "tags", "go", inst.PK()))
	assert.True(t, f.indexed(t, ctx, "tags", "redis", inst.PK()))

	popped, ok, err := tags.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "redis", popped)
	assert.False(t, f.indexed(t, ctx, "tags", "redis", inst.PK()))
}

func TestListFieldIndexing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	visits, err := inst.List("visits")
	require.NoError(t, err)

	_, err = visits.RPush(ctx, "home", "cart", "home")
	require.NoError(t, err)
	assert.True(t, f.indexed(t, ctx, "visits", "home", inst.PK()))
	assert.True(t, f.indexed(t, ctx, "visits", "cart", inst.PK()))

	// Popping one "home" keeps the index entry: a copy remains.
	value, ok, err := visits.LPop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "home", value)
	assert.True(t, f.indexed(t, ctx, "visits", "home", inst.PK()))

	// Popping the last copy deindexes.
	_, _, err = visits.RPop(ctx)
	require.NoError(t, err)
	assert.False(t, f.indexed(t, ctx, "visits", "home", inst.PK()))

	values, _ := visits.Range(ctx, 0, -1)
	assert.Equal(t, []string{"cart"}, values)

	require.NoError(t, visits.Set(ctx, 0, "checkout"))
	assert.False(t, f.indexed(t, ctx, "visits", "cart", inst.PK()))
	assert.True(t, f.indexed(t, ctx, "visits", "checkout", inst.PK()))
}

func TestListSetKeepsDuplicateIndexed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	visits, err := inst.List("visits")
	require.NoError(t, err)
	_, err = visits.RPush(ctx, "home", "home")
	require.NoError(t, err)

	// Overwriting one copy keeps the index entry while another copy remains.
	require.NoError(t, visits.Set(ctx, 0, "cart"))
	assert.True(t, f.indexed(t, ctx, "visits", "home", inst.PK()))
	assert.True(t, f.indexed(t, ctx, "visits", "cart", inst.PK()))

	// Overwriting the last copy deindexes.
	require.NoError(t, visits.Set(ctx, 1, "cart"))
	assert.False(t, f.indexed(t, ctx, "visits", "home", inst.PK()))
	assert.True(t, f.indexed(t, ctx, "visits", "cart", inst.PK()))
}

func TestHashFieldIndexing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	prefs, err := inst.Hash("prefs")
	require.NoError(t, err)

	require.NoError(t, prefs.HSet(ctx, "theme", "dark"))
	assert.True(t, f.indexed(t, ctx, "prefs", "dark", inst.PK()))

	// Overwriting an entry moves the pk to the new value's entry.
	require.NoError(t, prefs.HSet(ctx, "theme", "light"))
	assert.False(t, f.indexed(t, ctx, "prefs", "dark", inst.PK()))
	assert.True(t, f.indexed(t, ctx, "prefs", "light", inst.PK()))

	value, ok, _ := prefs.HGet(ctx, "theme")
	require.True(t, ok)
	assert.Equal(t, "light", value)

	_, err = prefs.HDel(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, f.indexed(t, ctx, "prefs", "light", inst.PK()))
}

func TestHashSharedValueIndexing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	prefs, err := inst.Hash("prefs")
	require.NoError(t, err)
	require.NoError(t, prefs.HSet(ctx, "editor", "dark"))
	require.NoError(t, prefs.HSet(ctx, "terminal", "dark"))

	// Deleting one entry keeps the index entry while another holds the value.
	_, err = prefs.HDel(ctx, "editor")
	require.NoError(t, err)
	assert.True(t, f.indexed(t, ctx, "prefs", "dark", inst.PK()))

	// Overwriting keeps it too while a sibling entry still holds the value.
	require.NoError(t, prefs.HSet(ctx, "editor", "dark"))
	require.NoError(t, prefs.HSet(ctx, "editor", "light"))
	assert.True(t, f.indexed(t, ctx, "prefs", "dark", inst.PK()))
	assert.True(t, f.indexed(t, ctx, "prefs", "light", inst.PK()))

	// Removing the last holder deindexes.
	_, err = prefs.HDel(ctx, "terminal")
	require.NoError(t, err)
	assert.False(t, f.indexed(t, ctx, "prefs", "dark", inst.PK()))
}

func TestSortedSetFieldIndexing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	scores, err := inst.SortedSet("scores")
	require.NoError(t, err)

	require.NoError(t, scores.Add(ctx, 10, "level1"))
	assert.True(t, f.indexed(t, ctx, "scores", "level1", inst.PK()))

	score, ok, _ := scores.Score(ctx, "level1")
	require.True(t, ok)
	assert.Equal(t, 10.0, score)

	_, err = scores.Rem(ctx, "level1")
	require.NoError(t, err)
	assert.False(t, f.indexed(t, ctx, "scores", "level1", inst.PK()))
}

func TestDeleteInstance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	name, _ := inst.Scalar("name")
	require.NoError(t, name.Set(ctx, "alice"))
	age, _ := inst.Scalar("age")
	require.NoError(t, age.Set(ctx, 30))
	tags, _ := inst.Set("tags")
	_, err := tags.Add(ctx, "go")
	require.NoError(t, err)

	require.NoError(t, inst.Delete(ctx))

	ok, _ := Exists(ctx, f.store, f.namer, f.def, inst.PK())
	assert.False(t, ok)
	assert.False(t, f.indexed(t, ctx, "name", "alice", inst.PK()))
	assert.False(t, f.indexed(t, ctx, "tags", "go", inst.PK()))
	_, ok, _ = f.store.ZScore(ctx, f.namer.RangeIndexKey("user", "age"), inst.PK())
	assert.False(t, ok)

	// The freed pk can be handed out again by a caller-chosen model; the
	// auto sequence itself never reuses it.
	next, err := New(ctx, f.store, f.namer, f.def)
	require.NoError(t, err)
	assert.NotEqual(t, inst.PK(), next.PK())
}

func TestReindexRepairsLostEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, _ := New(ctx, f.store, f.namer, f.def)

	name, _ := inst.Scalar("name")
	require.NoError(t, name.Set(ctx, "alice"))
	age, _ := inst.Scalar("age")
	require.NoError(t, age.Set(ctx, 30))

	// Simulate a crash that lost the index memberships but kept the data.
	require.NoError(t, f.store.Del(ctx, f.namer.IndexKey("user", "name", "alice")))
	require.NoError(t, f.store.Del(ctx, f.namer.RangeIndexKey("user", "age")))

	require.NoError(t, inst.Reindex(ctx))

	assert.True(t, f.indexed(t, ctx, "name", "alice", inst.PK()))
	score, ok, _ := f.store.ZScore(ctx, f.namer.RangeIndexKey("user", "age"), inst.PK())
	require.True(t, ok)
	assert.Equal(t, 30.0, score)

	// Running it again changes nothing.
	require.NoError(t, inst.Reindex(ctx))
	members, _ := f.store.SMembers(ctx, f.namer.IndexKey("user", "name", "alice"))
	assert.Equal(t, []string{inst.PK()}, members)
}
