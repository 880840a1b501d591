package component

import (
	"context"
	"log/slog"

	"github.com/modacct/account-sdk/component/ports"
	"github.com/modacct/account-sdk/component/values"
)

// LogEventSink emits lifecycle events as structured log records. It is the
// default sink for hosts that do not persist events.
type LogEventSink struct {
	logger *slog.Logger
}

// NewLogEventSink creates a sink writing to the given logger.
func NewLogEventSink(logger *slog.Logger) *LogEventSink {
	return &LogEventSink{logger: logger}
}

func (s *LogEventSink) ComponentInstalled(ctx context.Context, component values.Address, digest values.Digest, dependencies []values.FuncRef) {
	deps := make([]string, len(dependencies))
	for i, d := range dependencies {
		deps[i] = d.String()
	}
	s.logger.InfoContext(ctx, "event: component installed",
		"component", component.String(),
		"digest", digest.String(),
		"dependencies", deps)
}

func (s *LogEventSink) ComponentUninstalled(ctx context.Context, component values.Address, teardownOK bool) {
	s.logger.InfoContext(ctx, "event: component uninstalled",
		"component", component.String(),
		"teardown_ok", teardownOK)
}

var _ ports.EventSink = (*LogEventSink)(nil)
