package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"uocsclub.net/cpstats/internal/cache"
	"uocsclub.net/cpstats/internal/config"
	"uocsclub.net/cpstats/internal/database"
	"uocsclub.net/cpstats/internal/fetcher"
	"uocsclub.net/cpstats/internal/logger"
	"uocsclub.net/cpstats/internal/profiles"
	"uocsclub.net/cpstats/internal/types"
)

// cpwarm fetches the profile of every stored handle into the shared cache
// so the server starts with warm entries.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	workers := flag.Int("workers", 4, "concurrent profile fetches")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil && !config.IsWarning(err) {
		log.Fatalln(err)
	}
	logs := logger.New(cfg.LogLevel)
	if cfg.Cache.Path == "" {
		log.Fatalln("cache.path is empty, nothing to warm")
	}

	db, err := database.InitDatabase(cfg.Database.Path, cfg.Database.MigrationsDir)
	if err != nil {
		log.Fatalln(err)
	}
	defer db.Close()

	profileCache := cache.New[*types.PlatformProfile](
		cache.OpenSQLite(cfg.Cache.Path, cache.ProfileTable), "profiles", cfg.Cache.ProfileEvict, logs,
	)
	defer profileCache.Close()

	service := profiles.NewService(db, fetcher.NewSet(cfg, logs).ProfileFetchers(), profileCache, cfg.Timeouts.Profile, logs)

	users, err := service.Users()
	if err != nil {
		log.Fatalln(err)
	}
	targets := profiles.Targets(users)
	logs.Info("warming profile cache", "users", len(users), "handles", len(targets))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bar := progressbar.Default(int64(len(targets)), "Warming profiles")

	var mu sync.Mutex
	var failed *multierror.Error

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))
	for _, target := range targets {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_, err := service.Refresh(ctx, target.Platform, target.Handle)
			if err != nil {
				mu.Lock()
				failed = multierror.Append(failed, err)
				mu.Unlock()
			}
			bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logs.Warn("warm-up interrupted", "error", err)
	}
	bar.Finish()

	if err := failed.ErrorOrNil(); err != nil {
		logs.Warn("some handles could not be fetched", "failed", len(failed.Errors), "error", err)
		os.Exit(1)
	}
	logs.Info("profile cache warm", "handles", len(targets))
}
