package main

import (
	"context"
	"os"
	"time"

	"github.com/leadsift/leadsift/app_config"
	"github.com/leadsift/leadsift/classifier"
	"github.com/leadsift/leadsift/fetcher"
	"github.com/leadsift/leadsift/notifier"
	"github.com/leadsift/leadsift/pipeline"
	"github.com/leadsift/leadsift/store"
	. "github.com/leadsift/leadsift/utils"
	"github.com/leadsift/leadsift/utils/dotenv"
	Flag "github.com/leadsift/leadsift/utils/flag"
	. "github.com/leadsift/leadsift/utils/log"
)

const (
	defaultConfigPath = "config/pipeline.yaml"
	// Pause between full pipeline runs.
	runInterval = 10 * time.Minute
)

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
	runner := pipeline.NewRunner(
		fetcher.NewRedditFetcher(cfg.MIRRORS, cfg.MIRROR_TIMEOUT_SECONDS),
		leadStore,
		pipeline.NewDeduplicator(leadStore, GetSeenPostCache()),
		classifier.NewClassifier(
			classifier.NewOpenAIClient(os.Getenv("OPENAI_API_KEY")),
			cfg.SCORE_THRESHOLD,
		),
		notifier.NewDispatcher(),
		cfg,
	)

	// Main pipeline logic lives in the runner
	for {
		runner.RunAll(context.Background())

		// Protective delay
		time.Sleep(runInterval)
	}
}
