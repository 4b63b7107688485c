package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ezrec/bearcore/config"
	"github.com/ezrec/bearcore/suite"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	jobs int
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "run validation groups and report the ledger"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] [group ...]

Groups are named or keyed as in the menu; no groups runs them all.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.IntVar(&r.jobs, "j", 1, "groups to run concurrently, each on its own machine")
}

type runResult struct {
	console bytes.Buffer
	ledger  suite.Ledger
}

// Execute implements subcommands.Command.Execute. Each group gets a fresh
// machine; the consoles are printed in the order the groups were given.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	cfg := args[0].(*config.Config)

	groups := suite.Groups
	if f.NArg() != 0 {
		groups = nil
		for _, name := range f.Args() {
			g, err := suite.Lookup(name)
			if err != nil {
				log.Errorf("run: %v", err)
				return subcommands.ExitUsageError
			}
			groups = append(groups, g)
		}
	}

	results := make([]runResult, len(groups))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(r.jobs, 1))
	for n, g := range groups {
		result := &results[n]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := suite.NewSession(cfg, &result.console)
			if err != nil {
				return err
			}
			err = s.Run(g)
			result.ledger = s.Ledger
			return err
		})
	}
	err := eg.Wait()

	var total suite.Ledger
	for n := range results {
		os.Stdout.Write(results[n].console.Bytes())
		total.Total += results[n].ledger.Total
		total.Passed += results[n].ledger.Passed
	}
	fmt.Printf("\n%s\n", total.Summary())

	if err != nil {
		log.Errorf("run: %v", err)
		return subcommands.ExitFailure
	}
	if total.Failed() != 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
