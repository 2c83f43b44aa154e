package log

// MultiLogger fans one capture stream out to several loggers, typically
// a capture file plus console output through SlogAdapter.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger forwarding to every given logger.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log forwards the event to every configured logger in order.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*MultiLogger)(nil)
