// Command rules-import loads discount rules from JSON-lines files, one rule
// object per line, optionally gzip-compressed. Files are parsed concurrently
// and applied in argument order, so a later valid definition wins on duplicate
// IDs. Lines that fail to decode or validate are logged and skipped.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/joho/godotenv"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/storage/postgres"
)

const maxLineBytes = 1 << 20

// sourcedRule is a decoded rule with the place it came from.
type sourcedRule struct {
	rule discount.Rule
	file string
	line int
}

// duplicate records a rule ID redefined by a later line or file.
type duplicate struct {
	id       string
	previous sourcedRule
	current  sourcedRule
}

func main() {
	_ = godotenv.Load()

	var (
		databaseURL string
		dryRun      bool
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "validate files without writing to the database")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	files := flag.Args()
	if len(files) == 0 {
		lg.Fatal("Usage: rules-import [flags] <rules.jsonl[.gz]>...")
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, files, dryRun); err != nil {
		lg.Fatal("Import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, files []string, dryRun bool) error {
	start := time.Now()
	parsed, malformed, err := readAll(ctx, files)
	if err != nil {
		return err
	}

	accepted, invalid := validate(parsed)
	invalid = append(malformed, invalid...)
	for _, bad := range invalid {
		lg.Warn("Skipping invalid rule",
			zap.String("id", bad.src.rule.ID),
			zap.String("at", location(bad.src)),
			zap.Error(bad.err),
		)
	}

	merged, dups := merge(accepted)
	for _, d := range dups {
		lg.Warn("Duplicate rule ID, later definition wins",
			zap.String("id", d.id),
			zap.String("previous", location(d.previous)),
			zap.String("current", location(d.current)),
		)
	}

	valid := stamp(merged, time.Now().UTC())
	lg.Info("Parsed rule files",
		zap.Int("files", len(files)),
		zap.Int("rules", len(valid)),
		zap.Int("duplicates", len(dups)),
		zap.Int("invalid", len(invalid)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if dryRun {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	if err := postgres.NewRuleRepository(pool).SaveAll(ctx, valid); err != nil {
		return err
	}
	lg.Info("Imported discount rules", zap.Int("count", len(valid)))
	return nil
}

// readAll parses every file concurrently, keeping results in file order.
// Lines that do not decode are returned as invalid rules; only I/O failures
// abort the read.
func readAll(ctx context.Context, files []string) ([][]sourcedRule, []invalidRule, error) {
	var (
		out = make([][]sourcedRule, len(files))
		bad = make([][]invalidRule, len(files))
	)
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			rules, malformed, err := readFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			out[i], bad[i] = rules, malformed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var malformed []invalidRule
	for _, b := range bad {
		malformed = append(malformed, b...)
	}
	return out, malformed, nil
}

func readFile(ctx context.Context, path string) ([]sourcedRule, []invalidRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return parseLines(ctx, path, r)
}

func parseLines(ctx context.Context, name string, r io.Reader) ([]sourcedRule, []invalidRule, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		out  []sourcedRule
		bad  []invalidRule
		line int
	)
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		sr := sourcedRule{file: name, line: line}
		rule, err := discount.DecodeRule(jx.DecodeStr(text))
		if err != nil {
			bad = append(bad, invalidRule{src: sr, err: errors.Wrap(err, "decode")})
			continue
		}
		sr.rule = rule
		out = append(out, sr)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrapf(err, "scan line %d", line+1)
	}
	return out, bad, nil
}

// merge flattens per-file rules in order. A redefined ID replaces the
// earlier rule in place and is reported as a duplicate.
func merge(files [][]sourcedRule) ([]sourcedRule, []duplicate) {
	var (
		out  []sourcedRule
		dups []duplicate
		seen = make(map[string]int)
	)
	for _, rules := range files {
		for _, sr := range rules {
			id := sr.rule.ID
			if idx, ok := seen[id]; ok && id != "" {
				dups = append(dups, duplicate{id: id, previous: out[idx], current: sr})
				out[idx] = sr
				continue
			}
			seen[id] = len(out)
			out = append(out, sr)
		}
	}
	return out, dups
}

type invalidRule struct {
	src sourcedRule
	err error
}

// validate filters each file's rules before merging, so an invalid
// redefinition never displaces an earlier valid rule.
func validate(files [][]sourcedRule) ([][]sourcedRule, []invalidRule) {
	admin := discount.NewAdmin(nil)

	var (
		valid   = make([][]sourcedRule, len(files))
		invalid []invalidRule
	)
	for i, rules := range files {
		for _, sr := range rules {
			if sr.rule.ID == "" {
				invalid = append(invalid, invalidRule{src: sr, err: errors.New("rule id is required")})
				continue
			}
			if err := admin.Validate(sr.rule); err != nil {
				invalid = append(invalid, invalidRule{src: sr, err: err})
				continue
			}
			valid[i] = append(valid[i], sr)
		}
	}
	return valid, invalid
}

func stamp(rules []sourcedRule, now time.Time) []discount.Rule {
	out := make([]discount.Rule, len(rules))
	for i, sr := range rules {
		out[i] = sr.rule
		out[i].CreatedAt, out[i].UpdatedAt = now, now
	}
	return out
}

func location(sr sourcedRule) string {
	return sr.file + ":" + strconv.Itoa(sr.line)
}
