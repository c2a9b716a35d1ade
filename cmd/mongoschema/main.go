// Command mongoschema is a thin demonstration entrypoint wiring the
// library's core components together; the command-line surface
// itself is explicitly out of scope as a core deliverable (spec.md
// §1's non-goals), so this stays a minimal dispatcher rather than the
// teacher's own full CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/nonibytes/mongoschema/internal/config"
	"github.com/nonibytes/mongoschema/internal/logging"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/diff"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/drift"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/executor"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/infer"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/plan"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage/sqlite"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/validate"
)

func main() {
	if len(os.Args) < 3 {
		printUsage()
		os.Exit(1)
	}
	command, dbPath, collection := os.Args[1], os.Args[2], ""
	if len(os.Args) >= 4 {
		collection = os.Args[3]
	}

	logger := logging.New(logging.Options{Pretty: true})
	ctx := context.Background()

	adapter, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		logger.Error().Err(err).Msg("open database")
		os.Exit(1)
	}
	defer adapter.Close()

	switch command {
	case "infer":
		runInfer(ctx, adapter, collection, logger)
	case "diff":
		if len(os.Args) < 6 {
			fmt.Println("Usage: mongoschema diff <db> <collection> <from.yml> <to.yml>")
			os.Exit(1)
		}
		runDiff(os.Args[4], os.Args[5])
	case "drift":
		if len(os.Args) < 5 {
			fmt.Println("Usage: mongoschema drift <db> <collection> <expected.yml>")
			os.Exit(1)
		}
		runDrift(ctx, adapter, collection, os.Args[4], logger)
	case "migrate":
		if len(os.Args) < 6 {
			fmt.Println("Usage: mongoschema migrate <db> <collection> <from.yml> <to.yml> [--apply]")
			os.Exit(1)
		}
		apply := len(os.Args) >= 7 && os.Args[6] == "--apply"
		runMigrate(ctx, adapter, collection, os.Args[4], os.Args[5], apply, logger)
	case "validate":
		if len(os.Args) < 5 {
			fmt.Println("Usage: mongoschema validate <db> <collection> <expected.yml>")
			os.Exit(1)
		}
		runValidate(ctx, adapter, collection, os.Args[4])
	case "config-check":
		runConfigCheck()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: mongoschema <infer|diff|drift|migrate|validate|config-check> <db> [collection] ...")
}

func runInfer(ctx context.Context, adapter storage.Adapter, collection string, logger zerolog.Logger) {
	res, err := infer.Run(ctx, adapter, collection, infer.Options{Logger: logger})
	if err != nil {
		logger.Error().Err(err).Msg("inference failed")
		os.Exit(1)
	}
	out, err := schema.Marshal(res.Schema)
	if err != nil {
		logger.Error().Err(err).Msg("marshal result")
		os.Exit(1)
	}
	fmt.Println(string(out))
	if len(res.Anomalies) > 0 {
		fmt.Fprintf(os.Stderr, "%d anomalies detected\n", len(res.Anomalies))
	}
}

func runDiff(fromPath, toPath string) {
	from, err := loadSchema(fromPath)
	if err != nil {
		fail(err)
	}
	to, err := loadSchema(toPath)
	if err != nil {
		fail(err)
	}
	cs := diff.Diff(from, to)
	printJSON(cs.ToJSON())
}

func runDrift(ctx context.Context, adapter storage.Adapter, collection, expectedPath string, logger zerolog.Logger) {
	expected, err := loadSchema(expectedPath)
	if err != nil {
		fail(err)
	}
	result, err := drift.Detect(ctx, adapter, collection, expected, infer.Options{Logger: logger})
	if err != nil {
		logger.Error().Err(err).Msg("drift detection failed")
		os.Exit(1)
	}
	printJSON(result.ToJSON())
}

func runMigrate(ctx context.Context, adapter storage.Adapter, collection, fromPath, toPath string, apply bool, logger zerolog.Logger) {
	from, err := loadSchema(fromPath)
	if err != nil {
		fail(err)
	}
	to, err := loadSchema(toPath)
	if err != nil {
		fail(err)
	}
	p := plan.Compile(from, to)

	res, err := executor.Run(ctx, adapter, collection, p, to, executor.Options{
		DryRun:    !apply,
		BatchSize: 500,
		RateLimit: 0 * time.Millisecond,
		Logger:    logger,
		Sink:      executor.NewStdoutSink(),
	})
	if err != nil {
		logger.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
	printJSON(res.Progress)
}

func runValidate(ctx context.Context, adapter storage.Adapter, collection, expectedPath string) {
	expected, err := loadSchema(expectedPath)
	if err != nil {
		fail(err)
	}
	res, err := validate.Run(ctx, adapter, collection, expected, validate.Options{})
	if err != nil {
		fail(err)
	}
	printJSON(res.ToJSON())
}

func runConfigCheck() {
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	printJSON(cfg)
}

func loadSchema(path string) (*schema.Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return schema.Unmarshal(b)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(b))
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
