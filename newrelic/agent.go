package newrelic

import (
	"os"
	"time"

	"inviqa/mail-relay/log"

	"github.com/newrelic/go-agent/v3/newrelic"
)

const (
	shutdownTimeout   = time.Second * 10
	envKeyNewRelicEnv = "NEW_RELIC_ENV"
	envKeyLogLevel    = "NEW_RELIC_LOG_LEVEL"
	envKeyLicense     = "NEW_RELIC_LICENSE_KEY"
	defaultAppName    = "mail-relay"
)

// StartAgent configures the agent from the NEW_RELIC_* environment. Without a
// license key the agent stays disabled and transactions are no-ops.
func StartAgent() (*newrelic.Application, func()) {
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(defaultAppName),
		newrelic.ConfigEnabled(os.Getenv(envKeyLicense) != ""),
		newrelic.ConfigFromEnvironment(),
		agentLoggingConfig(),
		newrelic.ConfigDistributedTracerEnabled(true),
		func(cfg *newrelic.Config) {
			cfg.Labels = map[string]string{
				"env": os.Getenv(envKeyNewRelicEnv),
			}
			// rejected API calls are client errors, not relay failures
			cfg.ErrorCollector.IgnoreStatusCodes = append(cfg.ErrorCollector.IgnoreStatusCodes, 400, 401, 403, 404)
		},
	)
	if err != nil {
		log.Logger.WithError(err).Fatal("error starting New Relic agent")
	}
	return app, func() {
		log.Logger.Info("shutting down newrelic agent")
		app.Shutdown(shutdownTimeout)
	}
}

func agentLoggingConfig() newrelic.ConfigOption {
	if os.Getenv(envKeyLogLevel) == "debug" {
		return newrelic.ConfigDebugLogger(log.Writer())
	}
	return newrelic.ConfigInfoLogger(log.Writer())
}
