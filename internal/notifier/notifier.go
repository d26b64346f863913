package notifier

import (
	"github.com/mauv0809/derby-tracker/internal/summary"
)

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// For completed bouts
	SendBoutResult(result *summary.Summary, dryRun bool) error
}
