package membership

import (
	"fmt"
	"strings"

	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
	"github.com/teamhub/teamhub/backend/go-services/pkg/metrics"
)

// Failure records one fan-out step that did not complete. ID is the user (or team)
// the step was writing to.
type Failure struct {
	ID      string `json:"id"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Outcome is the result of a membership operation: the primary records plus any
// non-fatal warnings and partial fan-out failures.
type Outcome struct {
	User     *models.User `json:"user,omitempty"`
	Team     *models.Team `json:"team,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
	Failures []Failure    `json:"failures,omitempty"`
}

// Complete reports whether every fan-out step succeeded.
func (o *Outcome) Complete() bool { return len(o.Failures) == 0 }

func (o *Outcome) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Warnf("membership: %s", msg)
	o.Warnings = append(o.Warnings, msg)
}

func (o *Outcome) notifyFailed(kind string, err error) {
	metrics.NotificationFailures.WithLabelValues(kind).Inc()
	logger.Warnf("membership: %s email: %v", kind, err)
	o.Warnings = append(o.Warnings, fmt.Sprintf("Unable to send %s email", strings.ReplaceAll(kind, "_", " ")))
}

func (o *Outcome) fail(op, id string, err error) {
	logger.Warnf("membership: %s: propagation to %s failed: %v", op, id, err)
	metrics.FanoutFailures.WithLabelValues(op).Inc()
	o.Failures = append(o.Failures, Failure{ID: id, Message: err.Error(), Err: err})
}
