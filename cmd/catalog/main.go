// Command calorie-catalog seeds the shared food catalog from a YAML file.
//
//	calorie-catalog -file foods.yaml -dsn postgres://...
//
// Foods are owned by the system user and upserted by name, so the command
// can be re-run after editing the file. Foods already used in recorded days
// keep their stored values.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/and161185/calorie-tracker/internal/migrate"
	"github.com/and161185/calorie-tracker/internal/model"
	"github.com/and161185/calorie-tracker/internal/repository/postgres"
	"github.com/and161185/calorie-tracker/internal/service"
)

type catalogFile struct {
	Foods []catalogFood `yaml:"foods"`
}

type catalogFood struct {
	Name          string  `yaml:"name"`
	BaseWeight    float64 `yaml:"base_weight"`
	Calories      float64 `yaml:"calories"`
	Proteins      float64 `yaml:"proteins"`
	Fats          float64 `yaml:"fats"`
	Carbohydrates float64 `yaml:"carbohydrates"`
}

// parseCatalog decodes and validates the file. Names must be unique ignoring case.
func parseCatalog(r io.Reader) ([]model.Food, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cf catalogFile
	if err := dec.Decode(&cf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty catalog file")
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(cf.Foods) == 0 {
		return nil, errors.New("catalog has no foods")
	}

	seen := make(map[string]int, len(cf.Foods))
	out := make([]model.Food, 0, len(cf.Foods))
	for i, c := range cf.Foods {
		f := model.Food{
			Name:       c.Name,
			BaseWeight: c.BaseWeight,
			Nutrients: model.Nutrients{
				Calories:      c.Calories,
				Proteins:      c.Proteins,
				Fats:          c.Fats,
				Carbohydrates: c.Carbohydrates,
			},
		}
		if err := service.ValidateFood(&f); err != nil {
			return nil, fmt.Errorf("foods[%d] %q: %w", i, c.Name, err)
		}
		key := strings.ToLower(f.Name)
		if j, dup := seen[key]; dup {
			return nil, fmt.Errorf("foods[%d] %q duplicates foods[%d]", i, f.Name, j)
		}
		seen[key] = i
		out = append(out, f)
	}
	return out, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// run is main without os.Exit, returning the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("calorie-catalog", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "YAML catalog file (required)")
	dsn := fs.String("dsn", envOr("DATABASE_DSN", ""), "PostgreSQL DSN")
	owner := fs.Int64("owner", 1, "owner user id of shared foods")
	doMigrate := fs.Bool("migrate", false, "apply migrations before seeding")
	dryRun := fs.Bool("dry-run", false, "validate the file and print what would be stored")
	if v := os.Getenv("SYSTEM_USER_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			*owner = id
		}
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(stderr, "missing -file")
		return 2
	}

	f, err := os.Open(*file)
	if err != nil {
		fmt.Fprintln(stderr, "open:", err)
		return 1
	}
	foods, err := parseCatalog(f)
	_ = f.Close()
	if err != nil {
		fmt.Fprintln(stderr, "catalog:", err)
		return 1
	}

	if *dryRun {
		for _, fd := range foods {
			fmt.Fprintf(stdout, "%s\t%g\t%g kcal\n", fd.Name, fd.BaseWeight, fd.Calories)
		}
		fmt.Fprintf(stdout, "%d foods valid\n", len(foods))
		return 0
	}

	if *dsn == "" {
		fmt.Fprintln(stderr, "missing -dsn (or DATABASE_DSN)")
		return 2
	}
	if *doMigrate {
		if err := migrate.Up(ctx, *dsn); err != nil {
			fmt.Fprintln(stderr, "migrate:", err)
			return 1
		}
	}
	db, err := postgres.New(ctx, *dsn, postgres.MinConns)
	if err != nil {
		fmt.Fprintln(stderr, "db:", err)
		return 1
	}
	defer db.Close()

	n, err := postgres.NewFoodRepo(db, *owner).UpsertBatch(ctx, *owner, foods)
	if err != nil {
		fmt.Fprintln(stderr, "upsert:", err)
		return 1
	}
	fmt.Fprintf(stdout, "%d of %d foods written for owner %d\n", n, len(foods), *owner)
	if skipped := len(foods) - n; skipped > 0 {
		fmt.Fprintf(stdout, "%d foods unchanged: already used in statistics\n", skipped)
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
