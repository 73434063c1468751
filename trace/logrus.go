package trace

import "github.com/sirupsen/logrus"

// LogrusTracer logs self-square progress and degenerate columns
// through a *logrus.Logger, for callers that want visibility into a
// long exponentiation without the core knowing anything about logging
// frameworks.
type LogrusTracer struct {
	Log *logrus.Logger
}

// NewLogrusTracer wraps log, or logrus.StandardLogger() if log is nil.
func NewLogrusTracer(log *logrus.Logger) LogrusTracer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return LogrusTracer{Log: log}
}

func (t LogrusTracer) SquareStep(step, total int) {
	t.Log.WithFields(logrus.Fields{"step": step, "total": total}).Debug("nuctran: self-square complete")
}

func (t LogrusTracer) ColumnSkipped(nuclideIndex int) {
	t.Log.WithField("nuclide_index", nuclideIndex).Debug("nuctran: degenerate column skipped")
}
