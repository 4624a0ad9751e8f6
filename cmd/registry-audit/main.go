// Command registry-audit opens the configured persistent store and sweeps
// the registry invariants: dense-array/reverse-index agreement, ownership
// partition, and genome width. It exits non-zero when any blocking
// violation is found.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"stablecore/internal/core"
	"stablecore/pkg/domain"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("registry-audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOut := fs.Bool("json", false, "emit violations as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	engine := core.NewDefaultRulesEngine()
	store, err := core.OpenPersistentStoreFromEnv(engine)
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return 1
	}

	ctx := context.Background()
	var result domain.Result
	err = store.View(ctx, func(view domain.TransactionView) error {
		res, evalErr := engine.Evaluate(ctx, view, nil)
		if evalErr != nil {
			return evalErr
		}
		result = res
		fmt.Fprintf(stdout, "creatures=%d owners=%d nonce=%d\n",
			view.CreatureCount(), len(view.ListOwners()), view.Nonce())
		return nil
	})
	if err != nil {
		fmt.Fprintf(stderr, "audit: %v\n", err)
		return 1
	}

	if *jsonOut {
		if err := json.NewEncoder(stdout).Encode(result.Violations); err != nil {
			fmt.Fprintf(stderr, "encode violations: %v\n", err)
			return 1
		}
	} else {
		for _, v := range result.Violations {
			fmt.Fprintf(stdout, "%s [%s] %s", v.Rule, v.Severity, v.Message)
			if v.ID != "" {
				fmt.Fprintf(stdout, " (creature %s)", v.ID)
			}
			fmt.Fprintln(stdout)
		}
	}

	if result.HasBlocking() {
		fmt.Fprintf(stderr, "registry audit failed: %d violation(s)\n", len(result.Violations))
		return 1
	}
	fmt.Fprintln(stdout, "registry audit passed")
	return 0
}
