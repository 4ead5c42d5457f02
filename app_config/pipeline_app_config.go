package app_config

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

// PipelineAppConfig holds the tuning values of the lead pipeline. These are
// business knobs, not code constants; ops can change them without a redeploy
// by editing the config file.
type PipelineAppConfig struct {
	// Hard cap of leads persisted in a single run. Every saved lead implies
	// paid classifier calls downstream, so the cap is a cost ceiling.
	MAX_POSTS_PER_RUN int `yaml:"MAX_POSTS_PER_RUN"`
	// Abort the run after this many consecutive topic fetch failures.
	BREAKER_THRESHOLD int `yaml:"BREAKER_THRESHOLD"`
	// Seconds to sleep after a sub-threshold fetch failure before moving on
	// to the next topic.
	BACKOFF_SECONDS int `yaml:"BACKOFF_SECONDS"`
	// Minimum stage-2 score for a lead to be notifiable.
	SCORE_THRESHOLD int `yaml:"SCORE_THRESHOLD"`
	// Wall clock ceiling for the whole fetch phase of a run.
	FETCH_TIME_BUDGET_SECONDS int `yaml:"FETCH_TIME_BUDGET_SECONDS"`
	// Per-mirror request timeout.
	MIRROR_TIMEOUT_SECONDS int `yaml:"MIRROR_TIMEOUT_SECONDS"`
	// Ordered feed mirror base urls, tried in turn on failure.
	MIRRORS []string `yaml:"MIRRORS"`
}

// DefaultPipelineAppConfig returns the config used when no yaml file is
// provided, e.g. in tests.
func DefaultPipelineAppConfig() PipelineAppConfig {
	return PipelineAppConfig{
		MAX_POSTS_PER_RUN:         20,
		BREAKER_THRESHOLD:         3,
		BACKOFF_SECONDS:           5,
		SCORE_THRESHOLD:           70,
		FETCH_TIME_BUDGET_SECONDS: 30,
		MIRROR_TIMEOUT_SECONDS:    8,
		MIRRORS: []string{
			"https://www.reddit.com",
			"https://old.reddit.com",
		},
	}
}

func ParsePipelineAppConfig(path string) PipelineAppConfig {
	c := DefaultPipelineAppConfig()
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("yamlFile. get err: ", err.Error())
	}
	if err := yaml.Unmarshal(yamlFile, &c); err != nil {
		log.Fatal("fail to unmarshal pipeline app config: ", err.Error())
	}
	return c
}
