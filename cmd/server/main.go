package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/leadsift/leadsift/app_config"
	"github.com/leadsift/leadsift/classifier"
	"github.com/leadsift/leadsift/fetcher"
	"github.com/leadsift/leadsift/notifier"
	"github.com/leadsift/leadsift/pipeline"
	"github.com/leadsift/leadsift/server"
	"github.com/leadsift/leadsift/server/middlewares"
	"github.com/leadsift/leadsift/store"
	. "github.com/leadsift/leadsift/utils"
	"github.com/leadsift/leadsift/utils/dotenv"
	Flag "github.com/leadsift/leadsift/utils/flag"
	. "github.com/leadsift/leadsift/utils/log"
)

const defaultConfigPath = "config/pipeline.yaml"

func main() {
	Flag.ParseFlags()
	InitLogger()

	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.Fatal("fail to load env : ", err)
	}

	cfg := app_config.DefaultPipelineAppConfig()
	if _, err := os.Stat(defaultConfigPath); err == nil {
		cfg = app_config.ParsePipelineAppConfig(defaultConfigPath)
	}

	db, err := GetDBConnection()
	if err != nil {
		Log.Fatal("fail to connect database : ", err)
	}
	DatabaseSetupAndMigration(db)

	leadStore := store.NewLeadStore(db)
	cls := classifier.NewClassifier(
		classifier.NewOpenAIClient(os.Getenv("OPENAI_API_KEY")),
		cfg.SCORE_THRESHOLD,
	)
	runner := pipeline.NewRunner(
		fetcher.NewRedditFetcher(cfg.MIRRORS, cfg.MIRROR_TIMEOUT_SECONDS),
		leadStore,
		pipeline.NewDeduplicator(leadStore, GetSeenPostCache()),
		cls,
		notifier.NewDispatcher(),
		cfg,
	)

	handlers := &server.Handlers{
		Runner:     runner,
		Store:      leadStore,
		Dispatcher: notifier.NewDispatcher(),
		Drafter:    cls,
	}

	router := gin.Default()
	router.Use(cors.Default())
	server.RegisterRoutes(router, handlers, middlewares.BearerAuth(os.Getenv("INGEST_SHARED_SECRET")))

	Log.Info("===== Lead API Server Started =====")
	router.Run(":8080")
}
