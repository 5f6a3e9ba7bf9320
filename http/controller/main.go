package controller

import (
	"github.com/tnqbao/gau-store-server/config"
	"github.com/tnqbao/gau-store-server/engine"
	"github.com/tnqbao/gau-store-server/infra"
	"github.com/tnqbao/gau-store-server/policy"
	"github.com/tnqbao/gau-store-server/repository"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Engine     *engine.Engine
	Policies   *policy.Store
}

func NewController(cfg *config.Config, infra *infra.Infra, repo *repository.Repository, eng *engine.Engine, policies *policy.Store) *Controller {
	return &Controller{
		Config:     cfg,
		Infra:      infra,
		Repository: repo,
		Engine:     eng,
		Policies:   policies,
	}
}
