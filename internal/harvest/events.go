// Package harvest implements the incremental Google Scholar harvesting
// pipeline: the pagination engine, the record normalizer, the CSV encoder,
// and the typed progress event protocol streamed back to the caller.
package harvest

import (
	"encoding/json"
	"fmt"
	"io"
)

// EventKind identifies the type of a progress event.
type EventKind string

const (
	// EventStatus marks a lifecycle milestone.
	EventStatus EventKind = "status"
	// EventProgress is emitted before each page fetch.
	EventProgress EventKind = "progress"
	// EventPapers is emitted after each successful page is normalized.
	EventPapers EventKind = "papers"
	// EventError reports an upstream or transport failure.
	EventError EventKind = "error"
	// EventComplete is the final event of a successful run.
	EventComplete EventKind = "complete"
)

// Lifecycle phases carried by status events.
const (
	PhaseInit       = "init"
	PhaseGenerating = "generating"
	PhaseComplete   = "complete"
)

// StatusPayload is the payload of a status event.
type StatusPayload struct {
	Message string `json:"message"`
	Phase   string `json:"phase"`
}

// ProgressPayload is the payload of a progress event.
type ProgressPayload struct {
	Page       int    `json:"page"`
	TotalSoFar int    `json:"total_so_far"`
	Message    string `json:"message"`
}

// PapersPayload is the payload of a papers event.
type PapersPayload struct {
	NewCount    int    `json:"new_count"`
	TotalSoFar  int    `json:"total_so_far"`
	LatestTitle string `json:"latest_title"`
}

// ErrorPayload is the payload of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// CompletePayload is the payload of a complete event. Filename is empty and
// Message explains why when no records were collected.
type CompletePayload struct {
	TotalRecords int    `json:"total_records"`
	Filename     string `json:"filename"`
	Message      string `json:"message,omitempty"`
}

// Event is one entry of the single-producer, single-consumer, strictly
// ordered progress stream. The engine emits events in run order and closes
// the channel after the terminal event (complete, or error on auth failure).
type Event struct {
	Kind    EventKind
	Payload interface{}
}

// WriteSSE serializes the event in Server-Sent Events wire format:
// "event: <kind>\ndata: <json>\n\n".
func (e Event) WriteSSE(w io.Writer) error {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Kind, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data); err != nil {
		return fmt.Errorf("write %s event: %w", e.Kind, err)
	}
	return nil
}

func statusEvent(message, phase string) Event {
	return Event{Kind: EventStatus, Payload: StatusPayload{Message: message, Phase: phase}}
}

func progressEvent(page, totalSoFar int, message string) Event {
	return Event{Kind: EventProgress, Payload: ProgressPayload{Page: page, TotalSoFar: totalSoFar, Message: message}}
}

func papersEvent(newCount, totalSoFar int, latestTitle string) Event {
	return Event{Kind: EventPapers, Payload: PapersPayload{NewCount: newCount, TotalSoFar: totalSoFar, LatestTitle: latestTitle}}
}

func errorEvent(message string) Event {
	return Event{Kind: EventError, Payload: ErrorPayload{Message: message}}
}

func completeEvent(totalRecords int, filename, message string) Event {
	return Event{Kind: EventComplete, Payload: CompletePayload{TotalRecords: totalRecords, Filename: filename, Message: message}}
}
