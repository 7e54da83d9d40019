// Package harvestclient consumes a harvest progress stream and folds it into
// a phase/progress model, and downloads the resulting CSV artifact.
package harvestclient

import "encoding/json"

// Phase is the reconstructed lifecycle phase of a harvest.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSearching  Phase = "searching"
	PhaseGenerating Phase = "generating"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"
)

// State is the consumer-facing view folded from the event stream. Counters
// survive a terminal error so partial progress stays visible.
type State struct {
	Phase        Phase
	Page         int
	TotalRecords int
	LatestTitle  string
	Message      string
	Filename     string
	ErrorMessage string
}

// Event payload shapes, mirroring the server's wire format.

type statusData struct {
	Message string `json:"message"`
	Phase   string `json:"phase"`
}

type progressData struct {
	Page       int    `json:"page"`
	TotalSoFar int    `json:"total_so_far"`
	Message    string `json:"message"`
}

type papersData struct {
	NewCount    int    `json:"new_count"`
	TotalSoFar  int    `json:"total_so_far"`
	LatestTitle string `json:"latest_title"`
}

type errorData struct {
	Message string `json:"message"`
}

type completeData struct {
	TotalRecords int    `json:"total_records"`
	Filename     string `json:"filename"`
	Message      string `json:"message"`
}

// StateMachine folds stream events into a State. It is driven solely by
// events: progress and papers events update counters without changing phase,
// a generating status advances the phase, and complete/error are terminal.
// Malformed event payloads are discarded without disturbing the state.
type StateMachine struct {
	state State
}

// NewStateMachine returns a machine in the idle phase.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: State{Phase: PhaseIdle}}
}

// Start moves the machine from idle to searching when a harvest is submitted.
func (m *StateMachine) Start() {
	if m.state.Phase == PhaseIdle {
		m.state.Phase = PhaseSearching
	}
}

// State returns the current folded view.
func (m *StateMachine) State() State {
	return m.state
}

// Terminal reports whether the machine reached a final phase.
func (m *StateMachine) Terminal() bool {
	return m.state.Phase == PhaseComplete || m.state.Phase == PhaseError
}

// Apply folds one event into the state. Unknown kinds and payloads that fail
// to parse are ignored; the stream itself is never terminated by bad data.
func (m *StateMachine) Apply(kind string, data []byte) {
	switch kind {
	case "status":
		var d statusData
		if json.Unmarshal(data, &d) != nil {
			return
		}
		m.state.Message = d.Message
		if d.Phase == "generating" {
			m.state.Phase = PhaseGenerating
		}

	case "progress":
		var d progressData
		if json.Unmarshal(data, &d) != nil {
			return
		}
		m.state.Page = d.Page
		m.state.Message = d.Message

	case "papers":
		var d papersData
		if json.Unmarshal(data, &d) != nil {
			return
		}
		m.state.TotalRecords = d.TotalSoFar
		m.state.LatestTitle = d.LatestTitle

	case "error":
		var d errorData
		if json.Unmarshal(data, &d) != nil {
			return
		}
		m.state.Phase = PhaseError
		m.state.ErrorMessage = d.Message

	case "complete":
		var d completeData
		if json.Unmarshal(data, &d) != nil {
			return
		}
		m.state.Phase = PhaseComplete
		m.state.TotalRecords = d.TotalRecords
		m.state.Filename = d.Filename
		if d.Message != "" {
			m.state.Message = d.Message
		}
	}
}
