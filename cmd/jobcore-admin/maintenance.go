package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/creatorhub/jobcore/internal/adapters/sweeper"
	"github.com/creatorhub/jobcore/internal/data"
	"github.com/creatorhub/jobcore/internal/domain/model"
	"github.com/creatorhub/jobcore/internal/service"
)

type sweepOptions struct {
	Step    string
	Timeout time.Duration
	JSON    bool
}

func parseSweepFlags(args []string) (sweepOptions, error) {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := sweepOptions{Timeout: defaultMaintenanceTimeout}
	fs.StringVar(&opts.Step, "step", "", "Run a single step (expire, stuck, retry, purge-jobs, purge-webhooks, purge-cache)")
	fs.DurationVar(&opts.Timeout, "timeout", defaultMaintenanceTimeout, "Maximum duration for the sweep")
	fs.BoolVar(&opts.JSON, "json", false, "Print results as JSON")

	if err := fs.Parse(args); err != nil {
		return sweepOptions{}, err
	}
	if opts.Timeout <= 0 {
		return sweepOptions{}, errors.New("--timeout must be greater than zero")
	}
	if opts.Step != "" {
		if _, err := service.ParseSweepStep(opts.Step); err != nil {
			return sweepOptions{}, err
		}
	}
	return opts, nil
}

func runSweep(cmdCtx *commandContext, args []string) error {
	opts, err := parseSweepFlags(args)
	if err != nil {
		return err
	}
	ctx, cancel := commandScope(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, redisClient, err := connectInfra(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeInfra(db, redisClient); closeErr != nil {
			cmdCtx.Logger.Warn("close infrastructure", "error", closeErr)
		}
	}()

	cache, err := newCacheService(cmdCtx, db, redisClient)
	if err != nil {
		return err
	}
	runner, err := sweeper.NewRunner(sweeper.RunnerOptions{
		DB:                   db,
		Config:               cmdCtx.Config.Sweeper,
		WebhookRetentionDays: cmdCtx.Config.Webhook.RetentionDays,
		Logger:               cmdCtx.Logger,
		Cache:                cache,
	})
	if err != nil {
		return fmt.Errorf("create sweeper: %w", err)
	}

	results, err := runner.RunOnce(ctx, opts.Step)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	if opts.JSON {
		return printJSON(cmdCtx.Out, map[string]any{"results": results})
	}
	return printSweepResults(cmdCtx.Out, results)
}

func printSweepResults(w io.Writer, results []service.SweepResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writeln(tw, "STEP\tAFFECTED\tDURATION"); err != nil {
		return err
	}
	for _, res := range results {
		if err := writef(tw, "%s\t%d\t%s\n", res.Step, res.Affected, res.Duration.Round(time.Millisecond)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runRedeliverWebhooks(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("redeliver-webhooks", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	timeout := fs.Duration("timeout", defaultMaintenanceTimeout, "Maximum duration for the redelivery pass")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := commandScope(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, redisClient, err := connectInfra(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeInfra(db, redisClient); closeErr != nil {
			cmdCtx.Logger.Warn("close infrastructure", "error", closeErr)
		}
	}()

	cache, err := newCacheService(cmdCtx, db, redisClient)
	if err != nil {
		return err
	}
	webhookCfg := cmdCtx.Config.Webhook
	ledger, err := service.NewWebhookLedger(service.WebhookLedgerOptions{
		Repo:  data.NewWebhookRepo(db, data.RepoConfig{Logger: cmdCtx.Logger}),
		Cache: cache,
		Config: service.WebhookLedgerConfig{
			RetentionDays: webhookCfg.RetentionDays,
			MaxRetries:    webhookCfg.MaxRetries,
			RetryBatch:    webhookCfg.RetryBatch,
			RetryWindow:   webhookCfg.RetryWindow,
		},
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("create webhook ledger: %w", err)
	}

	n, err := ledger.Redeliver(ctx)
	if err != nil {
		return fmt.Errorf("redeliver: %w", err)
	}
	return writef(cmdCtx.Out, "redelivered %d event(s)\n", n)
}

type cacheInvalidateOptions struct {
	Category model.CacheCategory
	Pattern  string
	Timeout  time.Duration
}

func parseCacheInvalidateFlags(args []string) (cacheInvalidateOptions, error) {
	fs := flag.NewFlagSet("cache-invalidate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var category string
	opts := cacheInvalidateOptions{Timeout: defaultMaintenanceTimeout}
	fs.StringVar(&category, "category", string(model.CacheCategoryBilling), "Cache category")
	fs.StringVar(&opts.Pattern, "pattern", "", "Key glob, e.g. customer:cus_123:*")
	fs.DurationVar(&opts.Timeout, "timeout", defaultMaintenanceTimeout, "Maximum duration for the invalidation")

	if err := fs.Parse(args); err != nil {
		return cacheInvalidateOptions{}, err
	}
	opts.Category = model.CacheCategory(strings.TrimSpace(category))
	if !opts.Category.Valid() {
		return cacheInvalidateOptions{}, fmt.Errorf("invalid --category %q", category)
	}
	if strings.TrimSpace(opts.Pattern) == "" {
		return cacheInvalidateOptions{}, errors.New("--pattern is required")
	}
	return opts, nil
}

func runCacheInvalidate(cmdCtx *commandContext, args []string) error {
	opts, err := parseCacheInvalidateFlags(args)
	if err != nil {
		return err
	}
	ctx, cancel := commandScope(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, redisClient, err := connectInfra(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeInfra(db, redisClient); closeErr != nil {
			cmdCtx.Logger.Warn("close infrastructure", "error", closeErr)
		}
	}()

	cache, err := newCacheService(cmdCtx, db, redisClient)
	if err != nil {
		return err
	}
	n, err := cache.InvalidatePattern(ctx, opts.Category, opts.Pattern)
	if err != nil {
		return err
	}
	return writef(cmdCtx.Out, "invalidated %d entr(ies) in %s matching %q\n", n, opts.Category, opts.Pattern)
}

const defaultShowLogs = 20

func runJobShow(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("job-show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	logs := fs.Int("logs", defaultShowLogs, "Number of log entries to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: job-show [--logs N] <job-id>")
	}
	jobID := fs.Arg(0)

	ctx, cancel := commandScope(cmdCtx.Ctx, defaultMaintenanceTimeout)
	defer cancel()

	db, err := connectDBOnly(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeInfra(db, nil); closeErr != nil {
			cmdCtx.Logger.Warn("close infrastructure", "error", closeErr)
		}
	}()

	repo := data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})
	job, err := repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	entries, err := repo.ListLogs(ctx, jobID, *logs)
	if err != nil {
		return fmt.Errorf("list logs: %w", err)
	}
	return printJSON(cmdCtx.Out, map[string]any{"job": job, "logs": entries})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
