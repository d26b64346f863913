package notifier

import (
	"github.com/charmbracelet/log"
	"github.com/mauv0809/derby-tracker/internal/summary"
)

type noop struct{}

// NewNoop returns a Notifier that only logs. It is used when no provider is configured.
func NewNoop() Notifier {
	return noop{}
}

func (noop) SendBoutResult(result *summary.Summary, dryRun bool) error {
	log.Info("Notifications disabled, skipping bout result", "bout_id", result.BoutID, "outcome", result.Outcome)
	return nil
}
