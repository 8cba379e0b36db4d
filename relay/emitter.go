package relay

import (
	"context"

	"go.uber.org/zap"
)

// Status is one event on the status side channel.
type Status struct {
	Type string     `json:"type"`
	Data StatusData `json:"data"`
}

type StatusData struct {
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

// NewStatus builds a status event of type "status".
func NewStatus(description string, done bool) Status {
	return Status{Type: "status", Data: StatusData{Description: description, Done: done}}
}

// StatusEmitter receives fire-and-forget progress updates while a
// response streams. Emitting is never required for correctness of the
// text output, and implementations must not block the stream.
type StatusEmitter interface {
	EmitStatus(ctx context.Context, status Status)
}

// LogEmitter is a StatusEmitter that writes status events to a zap
// logger.
type LogEmitter struct {
	logger *zap.Logger
}

func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) EmitStatus(ctx context.Context, status Status) {
	e.logger.Info("status",
		zap.String("description", status.Data.Description),
		zap.Bool("done", status.Data.Done),
	)
}
