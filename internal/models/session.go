// internal/models/session.go
package models

// Outcome labels how a resolution ended.
type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeNotFound       Outcome = "not_found"
	OutcomeUnderspecified Outcome = "underspecified"
	OutcomeUnresolved     Outcome = "unresolved"
	OutcomeAborted        Outcome = "aborted"
)

// Resolution is returned to the caller of the resolution loop.
type Resolution struct {
	ID            string   `json:"id"`
	FinalText     string   `json:"finalText"`
	Sources       []Source `json:"sources"`
	ExitRequested bool     `json:"exitRequested"`
	Outcome       Outcome  `json:"outcome"`
	Attempts      int      `json:"attempts"`
}
