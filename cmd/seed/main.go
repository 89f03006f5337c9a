// Command seed fills a sqlite database with demo tables whose columns have
// skewed value distributions worth profiling.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/config"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/logging"
)

// weighted is a value and its relative frequency in the generated data.
type weighted struct {
	value  any
	weight int
}

func pick(r *rand.Rand, choices []weighted) any {
	total := 0
	for _, c := range choices {
		total += c.weight
	}
	n := r.IntN(total)
	for _, c := range choices {
		if n < c.weight {
			return c.value
		}
		n -= c.weight
	}
	return choices[len(choices)-1].value
}

var (
	countries = []weighted{
		{"US", 40}, {"IN", 20}, {"DE", 10}, {"GB", 8}, {"FR", 7},
		{"BR", 5}, {"CA", 4}, {"JP", 3}, {"AU", 2}, {"MX", 1},
	}
	channels = []weighted{{"web", 60}, {"mobile", 35}, {"store", 5}}
	// nil leaves the coupon column NULL, which dictionaries never count.
	coupons = []weighted{{nil, 80}, {"SPRING10", 12}, {"FREESHIP", 6}, {"VIP25", 2}}
	plans   = []weighted{{"free", 70}, {"pro", 25}, {"enterprise", 5}}
)

func main() {
	rows := flag.Int("rows", 200000, "purchases to insert")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	cfg := config.Default()
	if dsn := os.Getenv("TABLEDICT_SOURCE_DSN"); dsn != "" {
		cfg.Source.DSN = dsn
	}
	log, err := logging.New(cfg.Logging, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg.Source.DSN, *rows, *seed, log); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
	log.Info("seed done", zap.String("dsn", cfg.Source.DSN), zap.Int("rows", *rows))
}

func run(dsn string, rows int, seed uint64, log *zap.Logger) error {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	r := rand.New(rand.NewPCG(seed, seed+1))
	if err := seedPurchases(db, r, rows, log); err != nil {
		return err
	}
	return seedUsers(db, r, rows/20)
}

func seedPurchases(db *sql.DB, r *rand.Rand, n int, log *zap.Logger) error {
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS purchases`,
		`CREATE TABLE purchases (
			id INTEGER PRIMARY KEY,
			dt TEXT,
			country TEXT,
			channel TEXT,
			coupon TEXT,
			quantity INTEGER,
			amount REAL
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("purchases schema: %w", err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`INSERT INTO purchases(dt, country, channel, coupon, quantity, amount) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		dt := start.Add(time.Duration(r.IntN(365*24)) * time.Hour)
		// quantity skews toward 1
		qty := 1 + int(r.ExpFloat64()*0.8)
		amt := 10 + r.ExpFloat64()*50
		if _, err := stmt.Exec(dt.Format("2006-01-02"), pick(r, countries), pick(r, channels), pick(r, coupons), qty, amt); err != nil {
			return fmt.Errorf("insert purchase %d: %w", i, err)
		}
		if i > 0 && i%50000 == 0 {
			log.Debug("inserted purchases", zap.Int("count", i))
		}
	}
	return tx.Commit()
}

func seedUsers(db *sql.DB, r *rand.Rand, n int) error {
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS users`,
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			country TEXT,
			plan TEXT,
			active BOOLEAN
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("users schema: %w", err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`INSERT INTO users(country, plan, active) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(pick(r, countries), pick(r, plans), r.Float64() > 0.15); err != nil {
			return fmt.Errorf("insert user %d: %w", i, err)
		}
	}
	return tx.Commit()
}
