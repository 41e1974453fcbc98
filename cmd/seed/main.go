package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/favorly/backend/internal/config"
	"github.com/favorly/backend/internal/db"
)

type seedFavor struct {
	Title     string
	PosterUID string
	HelperUID string
	Status    string
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() (err error) {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("sql db: %w", err)
	}

	favors := buildSeedFavors()

	canSeed, err := shouldSeed(ctx, sqlDB)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("favors already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE favors`); err != nil {
		return fmt.Errorf("truncate favors: %w", err)
	}

	for _, f := range favors {
		if err := insertFavor(ctx, tx, f); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Printf("seeded %d favors", len(favors))
	return nil
}

func buildSeedFavors() []seedFavor {
	return []seedFavor{
		{Title: "Pick up groceries from the farmers market", PosterUID: "user-7", HelperUID: "user-12", Status: "accepted"},
		{Title: "Walk my dog twice this weekend", PosterUID: "user-3", Status: "open"},
		{Title: "Help assemble a bookshelf", PosterUID: "user-12", HelperUID: "user-5", Status: "accepted"},
		{Title: "Water my plants while I travel", PosterUID: "user-7", Status: "open"},
		{Title: "Drop a package at the post office", PosterUID: "user-5", HelperUID: "user-3", Status: "completed"},
		{Title: "Jump start my car", PosterUID: "user-9", Status: "open"},
		{Title: "Lend a ladder for the afternoon", PosterUID: "user-12", Status: "open"},
		{Title: "Help move a couch downstairs", PosterUID: "user-3", HelperUID: "user-9", Status: "accepted"},
	}
}

func insertFavor(ctx context.Context, tx *sql.Tx, f seedFavor) error {
	var helper any
	if f.HelperUID != "" {
		helper = f.HelperUID
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO favors (title, poster_uid, helper_uid, status) VALUES (?, ?, ?, ?)`,
		strings.TrimSpace(f.Title), f.PosterUID, helper, f.Status,
	)
	if err != nil {
		return fmt.Errorf("insert favor %q: %w", f.Title, err)
	}
	return nil
}

func shouldSeed(ctx context.Context, db *sql.DB) (bool, error) {
	var cnt int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favors`).Scan(&cnt); err != nil {
		return false, fmt.Errorf("count favors: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	force := os.Getenv("FORCE_SEED")
	return strings.EqualFold(force, "true"), nil
}
