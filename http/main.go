package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/tnqbao/gau-store-server/config"
	"github.com/tnqbao/gau-store-server/engine"
	"github.com/tnqbao/gau-store-server/http/controller"
	routes "github.com/tnqbao/gau-store-server/http/route"
	infraPkg "github.com/tnqbao/gau-store-server/infra"
	"github.com/tnqbao/gau-store-server/policy"
	"github.com/tnqbao/gau-store-server/repository"
	"github.com/tnqbao/gau-store-server/transfergraph"
)

func main() {
	err := godotenv.Load("staging.env")
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

	ctx := context.Background()
	bucketName := cfg.EnvConfig.Policy.BucketPrefix
	if err := eng.EnsureDefaultBucket(ctx, bucketName, cfg.EnvConfig.Policy.InitRegions); err != nil {
		log.Fatalf("Failed to register default bucket: %v", err)
	}

	ctrl := controller.NewController(cfg, infra, repo, eng, policies)
	router := routes.SetupRouter(ctrl)

	addr := ":" + cfg.EnvConfig.Server.Port
	log.Printf("HTTP Server started on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
