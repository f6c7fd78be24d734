// Command arbor-seed prepares a development database: it creates a user,
// issues an API token and plants a small demo tree so the API has something
// to serve on first boot.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/arborhq/arbor/pkg/auth"
	"github.com/arborhq/arbor/pkg/invite"
	"github.com/arborhq/arbor/pkg/media"
	"github.com/arborhq/arbor/pkg/tree"
)

func main() {
	var (
		driver   = flag.String("driver", "sqlite3", "database driver (sqlite3 or postgres)")
		dsn      = flag.String("dsn", "arbor-dev.db", "database DSN")
		username = flag.String("username", "dev", "username for the seeded account")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := seed(context.Background(), log, *driver, *dsn, *username); err != nil {
		log.WithError(err).Fatal("seeding failed")
	}
}

func seed(ctx context.Context, log *logrus.Logger, driver, dsn, username string) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if driver == "sqlite3" {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return err
		}
	}

	for _, migrate := range []func(context.Context, *sql.DB) error{
		auth.RunMigrations,
		tree.RunMigrations,
		invite.RunMigrations,
		media.RunMigrations,
	} {
		if err := migrate(ctx, db); err != nil {
			return err
		}
	}
	log.Info("migrations applied")

	users := auth.NewStore(db)
	user, err := users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		log.WithField("user_id", user.ID).Info("reusing existing user")
	case errors.Is(err, auth.ErrNotFound):
		user = &auth.User{
			Username: username,
			Email:    username + "@example.com",
			FullName: "Development User",
			IsActive: true,
		}
		if err := users.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		log.WithField("user_id", user.ID).Info("created user")
	default:
		return err
	}

	tokens := auth.NewTokenManager(users)
	_, token, err := tokens.CreateToken(ctx, user.ID, "dev", "seeded development token", nil)
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}

	trees := tree.NewStore(db)
	demo := &tree.Tree{
		Name:        "Demo Family",
		Description: "Seeded demonstration tree",
		OwnerID:     user.ID,
	}
	if err := trees.CreateTree(ctx, demo); err != nil {
		return fmt.Errorf("create tree: %w", err)
	}
	log.WithField("tree_id", demo.ID).Info("created demo tree")

	born := func(year int) *time.Time {
		t := time.Date(year, time.June, 15, 0, 0, 0, 0, time.UTC)
		return &t
	}
	persons := []*tree.Person{
		{GivenName: "Margaret", FamilyName: "Holt", Gender: "female", BirthDate: born(1932), BirthPlace: "York"},
		{GivenName: "Arthur", FamilyName: "Holt", Gender: "male", BirthDate: born(1930), BirthPlace: "Leeds"},
		{GivenName: "Susan", FamilyName: "Holt", Gender: "female", BirthDate: born(1958)},
		{GivenName: "James", FamilyName: "Holt", Gender: "male", BirthDate: born(1985)},
	}
	for _, p := range persons {
		p.TreeID = demo.ID
		if err := trees.CreatePerson(ctx, p); err != nil {
			return fmt.Errorf("create person %s: %w", p.GivenName, err)
		}
	}

	margaret, arthur, susan, james := persons[0], persons[1], persons[2], persons[3]
	edges := []struct {
		kind         string
		fromID, toID string
	}{
		{"wife", margaret.ID, arthur.ID},
		{"mother", margaret.ID, susan.ID},
		{"father", arthur.ID, susan.ID},
		{"son", james.ID, susan.ID},
	}
	for _, e := range edges {
		fromID, toID, kind, err := tree.Normalize(e.kind, e.fromID, e.toID)
		if err != nil {
			return fmt.Errorf("normalize %s: %w", e.kind, err)
		}
		rel := &tree.Relationship{
			TreeID: demo.ID,
			FromID: fromID,
			ToID:   toID,
			Type:   kind,
		}
		if err := trees.CreateRelationship(ctx, rel); err != nil {
			return fmt.Errorf("create relationship %s: %w", e.kind, err)
		}
	}
	log.WithFields(logrus.Fields{
		"persons":       len(persons),
		"relationships": len(edges),
	}).Info("planted demo data")

	log.WithFields(logrus.Fields{
		"username": username,
		"tree_id":  demo.ID,
	}).Info("seeding complete")
	fmt.Printf("\nAPI token (shown once):\n\n  %s\n\n", token)
	return nil
}
