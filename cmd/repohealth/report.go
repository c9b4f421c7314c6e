package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/repohealth/internal/gateway"
	"github.com/panbanda/repohealth/internal/output"
	"github.com/panbanda/repohealth/internal/progress"
	"github.com/panbanda/repohealth/internal/remote"
	"github.com/panbanda/repohealth/pkg/analyzer/health"
	"github.com/panbanda/repohealth/pkg/models"
)

func reportCmd() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Aliases:   []string{"analyze"},
		Usage:     "Build health reports for one or more repositories",
		ArgsUsage: "<owner/repo | url>...",
		Description: `Repositories may be given as owner/repo, owner/repo@branch or a URL.

Examples:
  repohealth report acme/widgets
  repohealth report https://github.com/acme/widgets -f json
  repohealth report --mine --limit 10 -f markdown -o health.md`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "mine",
				Usage: "Analyze every repository the token can access, most recently updated first",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "With --mine, analyze at most N repositories (0 = all)",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Value: health.DefaultConcurrency,
				Usage: "Repositories analyzed at once",
			},
			&cli.IntFlag{
				Name:  "fail-under",
				Usage: "Exit non-zero when any quality score is below N",
			},
		},
		Action: runReportCmd,
	}
}

func runReportCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	token := c.String("token")
	gw, err := newGateway(cfg.Gateway, token)
	if err != nil {
		return err
	}

	refs, err := resolveRefs(c.Context, c, gw, token)
	if err != nil {
		return err
	}

	store, err := openCache(cfg)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	opts := append(engineOptions(cfg, store), health.WithConcurrency(c.Int("concurrency")))

	var tracker *progress.Tracker
	if len(refs) > 1 {
		tracker = progress.NewTracker("Analyzing", len(refs))
		opts = append(opts, health.WithOnReport(func(ref models.RepositoryRef, err error) {
			tracker.Done(ref.FullName(), err)
		}))
	}

	outcomes := health.New(gw, opts...).BuildReports(c.Context, refs)
	if tracker != nil {
		tracker.Finish()
	}
	if err := c.Context.Err(); err != nil {
		return err
	}

	reports := output.NewReports(outcomes)
	if err := formatter.Output(reports); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return reportStatus(reports, c.Int("fail-under"))
}

// resolveRefs collects repositories from --mine and the positional args.
func resolveRefs(ctx context.Context, c *cli.Context, gw gateway.Gateway, token string) ([]models.RepositoryRef, error) {
	var refs []models.RepositoryRef

	if c.Bool("mine") {
		lister, ok := gw.(gateway.RepositoryLister)
		if !ok {
			return nil, errors.New("--mine requires the github gateway")
		}
		owned, err := lister.ListOwned(ctx)
		if err != nil {
			return nil, err
		}
		if limit := c.Int("limit"); limit > 0 && len(owned) > limit {
			owned = owned[:limit]
		}
		refs = append(refs, owned...)
	}

	for _, arg := range c.Args().Slice() {
		ref, err := remote.Parse(arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref.WithCredential(token))
	}

	if len(refs) == 0 {
		return nil, errors.New("no repositories given: pass owner/repo arguments or --mine")
	}
	return refs, nil
}

// reportStatus turns failures and low scores into the command's error.
func reportStatus(reports *output.Reports, failUnder int) error {
	if n := reports.Failed(); n > 0 {
		return fmt.Errorf("%d of %d repositories could not be analyzed", n, len(reports.Entries))
	}
	if failUnder <= 0 {
		return nil
	}
	for _, e := range reports.Entries {
		if e.Report.Score < failUnder {
			return fmt.Errorf("%s scored %d, below %d", e.Repository, e.Report.Score, failUnder)
		}
	}
	return nil
}
