package cli

import (
	"log/slog"

	"github.com/aretw0/itinera"
	"github.com/aretw0/itinera/internal/config"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/ports"
)

// ClientOptions maps the configuration onto the client facade.
func ClientOptions(cfg *config.Config, view ports.View, logger *slog.Logger) []itinera.Option {
	opts := []itinera.Option{
		itinera.WithLogger(logger),
		itinera.WithConnectionPolicy(cfg.ConnectionFor("")),
		itinera.WithPacing(cfg.Intake.DisplayDelay, cfg.Intake.AdvanceDelay),
		itinera.WithFailOpen(cfg.Intake.FailOpen),
		itinera.WithDeadlines(domain.RequestValidate, domain.Deadlines{Hard: cfg.Requests.ValidateTimeout}),
		itinera.WithDeadlines(domain.RequestSearch, domain.Deadlines{Hard: cfg.Requests.SearchTimeout}),
		itinera.WithDeadlines(domain.RequestGenerate, domain.Deadlines{
			Soft: cfg.Requests.GenerateSoft,
			Hard: cfg.Requests.GenerateHard,
		}),
		itinera.WithSilenceWindow(cfg.Presence.SilenceWindow),
		itinera.WithNotifyTTL(cfg.Notify.TTL),
		itinera.WithDownloadDir(cfg.DownloadDir),
	}
	if view != nil {
		opts = append(opts, itinera.WithView(view))
	}
	if len(cfg.Questions) > 0 {
		opts = append(opts, itinera.WithQuestions(cfg.Questions))
	}
	if cfg.Connection.ProbeInterval > 0 {
		opts = append(opts, itinera.WithProbeInterval(cfg.Connection.ProbeInterval))
	}
	if cfg.MetricsAddr != "" {
		opts = append(opts, itinera.WithMetrics(cfg.MetricsAddr))
	}
	return opts
}
