package observability

// EventRecord is a lifecycle event emitted by synthesis, verification and smoke runs.
type EventRecord struct {
	Level     string
	Event     string
	Stack     string
	RequestID string
	Fields    map[string]any
	Err       error
}

// Hooks receives lifecycle events. The zero value discards them.
type Hooks struct {
	Log func(EventRecord)
}

// Emit forwards record to the configured sink, if any.
func (h Hooks) Emit(record EventRecord) {
	if h.Log == nil {
		return
	}
	h.Log(record)
}

func HooksFromLogger(logger StructuredLogger) Hooks {
	if logger == nil {
		return Hooks{}
	}

	return Hooks{
		Log: func(record EventRecord) {
			fields := make(map[string]any, len(record.Fields)+2)
			for k, v := range record.Fields {
				fields[k] = v
			}
			fields["event"] = record.Event
			if record.Err != nil {
				fields["error"] = record.Err.Error()
			}

			scoped := logger
			if record.Stack != "" {
				scoped = scoped.WithStack(record.Stack)
			}
			if record.RequestID != "" {
				scoped = scoped.WithRequestID(record.RequestID)
			}

			switch record.Level {
			case "error":
				scoped.Error(record.Event, fields)
			case "warn":
				scoped.Warn(record.Event, fields)
			case "debug":
				scoped.Debug(record.Event, fields)
			default:
				scoped.Info(record.Event, fields)
			}
		},
	}
}
