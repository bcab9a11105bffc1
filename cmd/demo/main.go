// Command demo defines a small user model and walks through the main
// operations: creating instances, filtering on indexed fields, range
// queries, sorting and deletion.
//
// By default it runs against the in-memory store so it needs nothing
// installed. Point it at a real Redis with:
//
//	demo -store redis -addr localhost:6379
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/rzpsarthak13/redimap/pkg/redimap"
)

func main() {
	storeType := flag.String("store", "memory", "store type: memory or redis")
	addr := flag.String("addr", "localhost:6379", "redis address (ignored for memory)")
	flag.Parse()

	config := redimap.DefaultConfig()
	config.Store.Type = *storeType
	config.Store.Endpoints = []string{*addr}
	config.Namespace = "demo"

	client, err := redimap.NewClient(config)
	if err != nil {
		log.Fatalf("[DEMO] Failed to connect: %v", err)
	}
	defer client.Close()

	// 1. Define the model. Every model is declared once at startup.
	users, err := client.Define(redimap.ModelSpec{
		Name:   "user",
		AutoPK: true,
		Fields: []redimap.FieldSpec{
			{Name: "name", Type: redimap.FieldString, Unique: true},
			{Name: "age", Type: redimap.FieldString, Indexed: true, Index: redimap.IndexRange},
			{Name: "city", Type: redimap.FieldString, Indexed: true},
			{Name: "tags", Type: redimap.FieldSet, Indexed: true},
		},
	})
	if err != nil {
		log.Fatalf("[DEMO] Failed to define model: %v", err)
	}
	client.Freeze()

	ctx := context.Background()
	if err := run(ctx, users); err != nil {
		log.Fatalf("[DEMO] %v", err)
	}
}

func run(ctx context.Context, users *redimap.Model) error {
	// 2. Create a few users.
	people := []map[string]interface{}{
		{"name": "alice", "age": 30, "city": "paris"},
		{"name": "bob", "age": 25, "city": "lyon"},
		{"name": "carol", "age": 35, "city": "paris"},
	}
	for _, fields := range people {
		user, err := users.Create(ctx, fields)
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		fmt.Printf("created user %s (pk=%s)\n", fields["name"], user.PK())
	}

	// Uniqueness: a second "alice" is rejected before anything is written.
	if _, err := users.Create(ctx, map[string]interface{}{"name": "alice", "age": 99}); err != nil {
		if !errors.Is(err, redimap.ErrUniqueness) {
			return err
		}
		fmt.Println("duplicate name rejected:", err)
	}

	// Multi-value fields index every member.
	all, err := users.Collection().Filter("name", "bob")
	if err != nil {
		return err
	}
	bobPK, _, err := all.First(ctx)
	if err != nil {
		return err
	}
	bob := users.Handle(bobPK)
	tags, err := bob.Set("tags")
	if err != nil {
		return err
	}
	if _, err := tags.Add(ctx, "admin", "beta"); err != nil {
		return err
	}

	// 3. Query. Nothing hits the store until a terminal call.
	parisians, err := users.Collection().Filter("city", "paris")
	if err != nil {
		return err
	}
	ids, err := parisians.MemberIDs(ctx)
	if err != nil {
		return err
	}
	fmt.Println("in paris:", ids)

	over28, err := users.Collection().Filter("age__gte", 28)
	if err != nil {
		return err
	}
	sorted, err := over28.Sort("age", false)
	if err != nil {
		return err
	}
	if err := sorted.Each(ctx, func(pk string) error {
		user := users.Handle(pk)
		name, err := user.Scalar("name")
		if err != nil {
			return err
		}
		value, _, err := name.Get(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("age >= 28: %s (pk=%s)\n", value, pk)
		return nil
	}); err != nil {
		return err
	}

	admins, err := users.Collection().Filter("tags", "admin")
	if err != nil {
		return err
	}
	count, err := admins.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Println("admins:", count)

	// Filters compose by intersection.
	parisOver28, err := parisians.Filter("age__gt", 28)
	if err != nil {
		return err
	}
	ids, err = parisOver28.MemberIDs(ctx)
	if err != nil {
		return err
	}
	fmt.Println("in paris and over 28:", ids)

	// 4. Delete. The pk disappears from every index and the collection.
	if err := bob.Delete(ctx); err != nil {
		return err
	}
	total, err := users.Collection().Count(ctx)
	if err != nil {
		return err
	}
	fmt.Println("users after delete:", total)

	// 5. Index repair is idempotent; running it here changes nothing.
	stats, err := users.RebuildIndexes(ctx, redimap.DefaultRebuildConfig())
	if err != nil {
		return err
	}
	fmt.Printf("rebuild: scanned %d, repaired %d\n", stats.Scanned, stats.Repaired)
	return nil
}
