package metrics

import (
	"sync"
	"time"

	"niftyflow/logger"
)

// RunEvent describes one finished pipeline run.
type RunEvent struct {
	Timestamp      time.Time     `json:"timestamp"`
	RunID          string        `json:"run_id"`
	Source         string        `json:"source"`
	Status         string        `json:"status"`
	RowsFetched    int           `json:"rows_fetched"`
	RowsDropped    int           `json:"rows_dropped"`
	MessagesSent   int           `json:"messages_sent"`
	MessagesFailed int           `json:"messages_failed"`
	Duration       time.Duration `json:"duration_ns"`
	Error          string        `json:"error,omitempty"`
}

// RunHandler consumes run events, for example to keep a history.
type RunHandler func(RunEvent)

// RunHandlerID uniquely identifies a registered run handler.
type RunHandlerID uint64

var (
	runHandlersMu    sync.RWMutex
	runHandlers      = make(map[RunHandlerID]RunHandler)
	nextRunHandlerID RunHandlerID
)

// RegisterRunHandler registers a handler that receives every emitted run event.
// A zero identifier is returned when the handler is nil.
func RegisterRunHandler(handler RunHandler) RunHandlerID {
	if handler == nil {
		return 0
	}

	runHandlersMu.Lock()
	defer runHandlersMu.Unlock()

	nextRunHandlerID++
	id := nextRunHandlerID
	runHandlers[id] = handler
	return id
}

// UnregisterRunHandler removes the handler associated with id.
func UnregisterRunHandler(id RunHandlerID) {
	if id == 0 {
		return
	}

	runHandlersMu.Lock()
	delete(runHandlers, id)
	runHandlersMu.Unlock()
}

// EmitRun records the run in Prometheus, logs it and fans it out to the
// registered handlers.
func EmitRun(log *logger.Log, event RunEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if log == nil {
		log = logger.GetLogger()
	}

	RecordRun(event.Source, event.Status, event.Duration)

	fields := logger.Fields{
		"run_id":          event.RunID,
		"source":          event.Source,
		"status":          event.Status,
		"rows_fetched":    event.RowsFetched,
		"rows_dropped":    event.RowsDropped,
		"messages_sent":   event.MessagesSent,
		"messages_failed": event.MessagesFailed,
		"duration_ms":     float64(event.Duration.Nanoseconds()) / 1e6,
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}
	log.WithComponent("pipeline").WithFields(fields).Info("run finished")

	dispatchRun(event)
}

func dispatchRun(event RunEvent) {
	runHandlersMu.RLock()
	if len(runHandlers) == 0 {
		runHandlersMu.RUnlock()
		return
	}

	handlers := make([]RunHandler, 0, len(runHandlers))
	for _, handler := range runHandlers {
		handlers = append(handlers, handler)
	}
	runHandlersMu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
