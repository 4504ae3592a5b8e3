// Command plan solves one plan request against a catalog snapshot file
// without a database, printing the result as JSON.
//
//	plan -catalog snapshot.json -request request.json
//	plan -demo -request request.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/actuallystonmai/menu-planner/internal/domain"
	"github.com/actuallystonmai/menu-planner/internal/logging"
	"github.com/actuallystonmai/menu-planner/internal/planner"
	"github.com/actuallystonmai/menu-planner/seeds"
)

func main() {
	catalogPath := flag.String("catalog", "", "catalog snapshot JSON file")
	demo := flag.Bool("demo", false, "plan against the built-in demo catalog instead of -catalog")
	requestPath := flag.String("request", "-", "plan request JSON file, - for stdin")
	timeLimit := flag.Duration("time-limit", 10*time.Second, "default solver time limit")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger, err := logging.New(*logLevel, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(*catalogPath, *requestPath, *demo, *timeLimit, logger, os.Stdout); err != nil {
		logger.Error("plan.failed", zap.Error(err))
		os.Exit(1)
	}
}

// run solves one request. Recipes in the catalog file may omit allergens;
// the planner infers them from ingredient names the same way the server
// does.
func run(catalogPath, requestPath string, demo bool, timeLimit time.Duration, logger *zap.Logger, out io.Writer) error {
	var snap *domain.CatalogSnapshot
	switch {
	case demo:
		snap = seeds.Catalog(time.Now())
	case catalogPath == "":
		return fmt.Errorf("-catalog or -demo is required")
	default:
		snap = &domain.CatalogSnapshot{}
		if err := readJSON(catalogPath, snap); err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}
	}
	var req domain.PlanRequest
	if err := readJSON(requestPath, &req); err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	cfg := planner.DefaultConfig()
	cfg.DefaultTimeLimit = timeLimit
	if cfg.MaxTimeLimit < timeLimit {
		cfg.MaxTimeLimit = timeLimit
	}
	res, err := planner.New(cfg, logger).SolvePlan(context.Background(), snap, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func readJSON(path string, v any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return json.NewDecoder(r).Decode(v)
}
