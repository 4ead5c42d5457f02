package log

import (
	"os"

	"github.com/leadsift/leadsift/utils/dotenv"
	"github.com/leadsift/leadsift/utils/flag"
	"github.com/sirupsen/logrus"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// This init function is only for testing cases, where the entry point is not
// main function. Unit test will fail with nil pointer dereference if we don't
// init here.
func init() {
	InitLogger()
}

func InitLogger() {
	logger = logrus.New()

	// Send log to stderr. Use the json formatter in production so the host's
	// log collector can index fields, plain text otherwise for readability.
	logger.SetOutput(os.Stderr)
	if os.Getenv("LEADSIFT_ENV") == dotenv.ProdEnv {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	Log = logger.WithFields(
		logrus.Fields{"service": flag.ServiceName, "is_development": os.Getenv("LEADSIFT_ENV") != dotenv.ProdEnv},
	)
}
