package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// envPrefix namespaces every environment variable, e.g. SIGNALPROB_STORE.
const envPrefix = "signalprob"

// Settings are process-level options shared by all subcommands. Flags
// override them per invocation.
type Settings struct {
	StorePath   string `envconfig:"STORE" default:"signalprob.db"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"warn"`
	LabelColumn string `envconfig:"LABEL_COLUMN" default:"label"`
	MetricsFile string `envconfig:"METRICS_FILE"`
}

// loadSettings reads an optional .env file and then the environment.
func loadSettings(envFile string) (Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Settings{}, errors.Wrapf(err, "load %s", envFile)
		}
	}
	var s Settings
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return Settings{}, errors.Wrap(err, "read environment")
	}
	return s, nil
}
