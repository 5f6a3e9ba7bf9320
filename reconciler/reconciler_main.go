package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tnqbao/gau-store-server/config"
	"github.com/tnqbao/gau-store-server/engine"
	infraPkg "github.com/tnqbao/gau-store-server/infra"
	"github.com/tnqbao/gau-store-server/policy"
	"github.com/tnqbao/gau-store-server/reconciler/worker"
	"github.com/tnqbao/gau-store-server/repository"
	"github.com/tnqbao/gau-store-server/transfergraph"
)

func main() {
	err := godotenv.Load("../staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	graph := transfergraph.New()
	if path := cfg.EnvConfig.TransferGraph.ProfilePath; path != "" {
		graph, err = transfergraph.LoadProfile(path)
		if err != nil {
			log.Fatalf("Failed to load transfer graph profile: %v", err)
		}
	} else {
		for _, tag := range cfg.EnvConfig.Policy.InitRegions {
			graph.AddNode(tag, transfergraph.Node{})
		}
	}

	policies := policy.NewStore(infra.Redis, cfg.EnvConfig, graph)
	eng := engine.New(repo, policies, infra.Logger, infra.Produce)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lockTimeout := time.Duration(cfg.EnvConfig.Reconciler.LockTimeoutMinutes) * time.Minute
	expiryInterval := time.Duration(cfg.EnvConfig.Reconciler.ExpiryIntervalSecs) * time.Second

	// The lock sweep runs once a minute; the timeout itself decides what
	// counts as stale.
	lockWorker := worker.NewLockTimeoutWorker(infra, repo, lockTimeout, time.Minute)
	lockWorker.Start(ctx)

	expiryWorker := worker.NewExpiryWorker(infra, eng, expiryInterval)
	expiryWorker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down reconciler...")
	cancel()

	infra.Logger.InfoWithContextf(context.Background(), "Reconciler exited properly")
}
