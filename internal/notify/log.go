package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// LogSink writes notifications to the application log.  It never fails.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{log: logger}
}

func (s *LogSink) NotifyConfirmed(_ context.Context, res *model.Reservation) model.NotifyResult {
	m := Confirmation(res)
	s.log.Info("booking confirmed notification",
		zap.String("to", res.HolderEmail), zap.String("reservation_id", res.ID), zap.String("subject", m.Subject))
	return model.NotifyResult{Success: true}
}

func (s *LogSink) NotifyFailed(_ context.Context, n model.FailureNotice) model.NotifyResult {
	s.log.Info("booking failed notification",
		zap.String("to", n.HolderEmail), zap.String("reason", n.Reason))
	return model.NotifyResult{Success: true}
}
