package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"uocsclub.net/cpstats/internal/cache"
	"uocsclub.net/cpstats/internal/config"
	"uocsclub.net/cpstats/internal/contests"
	"uocsclub.net/cpstats/internal/database"
	"uocsclub.net/cpstats/internal/fetcher"
	"uocsclub.net/cpstats/internal/logger"
	"uocsclub.net/cpstats/internal/profiles"
	"uocsclub.net/cpstats/internal/types"
	"uocsclub.net/cpstats/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil && !config.IsWarning(err) {
		log.Fatalln(err)
	}
	logs := logger.New(cfg.LogLevel)
	if err != nil {
		logs.Warn("config loaded with warnings", "error", err)
	}

	db, err := database.InitDatabase(cfg.Database.Path, cfg.Database.MigrationsDir)
	if err != nil {
		logs.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	profileCache := cache.New[*types.PlatformProfile](
		cache.OpenSQLite(cfg.Cache.Path, cache.ProfileTable), "profiles", cfg.Cache.ProfileEvict, logs,
	)
	defer profileCache.Close()
	contestCache := cache.New[[]types.ContestListing](
		cache.OpenSQLite(cfg.Cache.Path, cache.ContestTable), "contests", cfg.Cache.ContestEvict, logs,
	)
	defer contestCache.Close()

	fetchers := fetcher.NewSet(cfg, logs)
	profileService := profiles.NewService(db, fetchers.ProfileFetchers(), profileCache, cfg.Timeouts.Profile, logs)
	contestService := contests.NewService(fetchers.ContestListers(), contestCache, cfg.Timeouts.Contest, logs)

	s, err := gocron.NewScheduler()
	if err != nil {
		logs.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	if _, err := profileCache.Schedule(s, cfg.Cache.ProfileEvict); err != nil {
		logs.Error("failed to schedule profile eviction", "error", err)
		os.Exit(1)
	}

	warm := func() {}
	if cfg.Cache.WarmContests {
		warm = func() { contestService.Warm(context.Background()) }
	}
	j, err := contestCache.Schedule(s, cfg.Cache.ContestEvict, warm)
	if err != nil {
		logs.Error("failed to schedule contest eviction", "error", err)
		os.Exit(1)
	}

	s.Start()
	defer s.Shutdown()
	if cfg.Cache.WarmContests {
		j.RunNow() // durationjob doesn't run on startup
	}

	server := web.InitServer(web.ServerConfig{Port: cfg.Server.Port}, contestService, profileService, logs)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logs.Info("shutting down")
		server.Shutdown()
	}()

	if err := server.Listen(); err != nil {
		logs.Error("server stopped", "error", err)
	}
}
