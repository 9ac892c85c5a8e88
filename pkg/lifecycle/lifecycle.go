package lifecycle

import (
	"github.com/darktohka/knockd/pkg/config"
	"github.com/darktohka/knockd/pkg/executor"
	"github.com/darktohka/knockd/pkg/log"
	"github.com/darktohka/knockd/pkg/metrics"
)

// Setup runs every rule's setup command. Failures are logged and do not stop
// the remaining commands.
func Setup(cfg *config.Config, exec executor.Executor) {
	logger := log.WithComponent("lifecycle")
	logger.Info().Msg("running setup commands")

	for i := range cfg.Rules {
		rule := &cfg.Rules[i]
		if rule.Setup == "" {
			continue
		}
		if err := exec.Execute(rule.Setup); err != nil {
			logger.Error().Err(err).Str("rule", rule.Name).Msg("setup command failed")
			metrics.CommandFailuresTotal.WithLabelValues("setup").Inc()
		}
	}
}

// Teardown runs every rule's teardown command. Failures are logged and do not
// stop the remaining commands.
func Teardown(cfg *config.Config, exec executor.Executor) {
	logger := log.WithComponent("lifecycle")
	logger.Info().Msg("running teardown commands")

	for i := range cfg.Rules {
		rule := &cfg.Rules[i]
		if rule.Teardown == "" {
			continue
		}
		if err := exec.Execute(rule.Teardown); err != nil {
			logger.Error().Err(err).Str("rule", rule.Name).Msg("teardown command failed")
			metrics.CommandFailuresTotal.WithLabelValues("teardown").Inc()
		}
	}
}
