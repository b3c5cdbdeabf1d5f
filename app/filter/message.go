package filter

import (
	"fmt"
	"log/slog"
)

const ActionReapplyFilters = "reapplyFilters"

type Message struct {
	Action string `json:"action"`
}

type Response struct {
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Counters *Counters `json:"counters,omitempty"`
}

// HandleMessage answers one control message. A failing pass is reported in
// the response and never propagates to the caller.
func (e *Engine) HandleMessage(msg Message) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while handling message", "action", msg.Action, "panic", r)
			resp = Response{Success: false, Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	switch msg.Action {
	case ActionReapplyFilters:
		counters, err := e.Reapply()
		if err != nil {
			return Response{Success: false, Error: err.Error()}
		}
		return Response{Success: true, Counters: &counters}
	default:
		slog.Warn("Unknown message action", "action", msg.Action)
		return Response{Success: false, Error: fmt.Sprintf("unknown action %q", msg.Action)}
	}
}
