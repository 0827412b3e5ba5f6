package models

import (
	"fmt"
	"time"
)

// Mode is one of the five fixed pedagogical interaction styles. It governs
// how the seeded system prompt is templated and is opaque to the dispatcher.
type Mode string

const (
	ModeInvestigator Mode = "investigator"
	ModeComparitor   Mode = "comparitor"
	ModeQuest        Mode = "quest"
	ModeCodebreaker  Mode = "codebreaker"
	ModeEliminator   Mode = "eliminator"
)

// Valid reports whether m is one of the five known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeInvestigator, ModeComparitor, ModeQuest, ModeCodebreaker, ModeEliminator:
		return true
	}
	return false
}

// Link is a shareable tutoring session configuration. The ID is an opaque
// UUID used directly in public URLs, so it must never be guessable or
// sequential. Links are read publicly by ID; only the owner may delete them.
type Link struct {
	// Identification
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	// Session configuration
	Mode    Mode   `json:"mode"`
	Subject string `json:"subject"`
	Prompt  string `json:"prompt"`

	// Language is required when Mode is codebreaker and must be empty
	// otherwise.
	Language string `json:"language,omitempty"`

	// Metadata
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the link invariants: mode is one of the five known values,
// subject and prompt are present, and language is set iff mode is codebreaker.
func (l *Link) Validate() error {
	if !l.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrValidation, l.Mode)
	}
	if l.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if l.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	if l.Mode == ModeCodebreaker && l.Language == "" {
		return fmt.Errorf("%w: language is required for codebreaker mode", ErrValidation)
	}
	if l.Mode != ModeCodebreaker && l.Language != "" {
		return fmt.Errorf("%w: language is only valid for codebreaker mode", ErrValidation)
	}
	return nil
}

// SystemPrompt builds the system message seeded into a new conversation.
// Each mode contributes its own pedagogical framing; the teacher-authored
// prompt body always comes last so it can override the defaults.
func (l *Link) SystemPrompt() string {
	var framing string
	switch l.Mode {
	case ModeInvestigator:
		framing = "You are a tutor who teaches through questioning. Never give the answer outright; " +
			"respond to the student with probing questions that lead them to discover it themselves."
	case ModeComparitor:
		framing = "You are a tutor who teaches through comparison. Frame every explanation by " +
			"contrasting two or more related concepts, highlighting similarities and differences."
	case ModeQuest:
		framing = "You are a tutor who teaches through a narrative adventure. Present the material " +
			"as a series of challenges the student must overcome, advancing the story as they progress."
	case ModeCodebreaker:
		framing = fmt.Sprintf("You are a programming tutor. Teach through small %s coding exercises, "+
			"reviewing the student's attempts and giving incremental hints rather than full solutions.", l.Language)
	case ModeEliminator:
		framing = "You are a tutor who teaches through elimination. Pose multiple-choice problems and " +
			"guide the student to rule out wrong answers by reasoning about why each fails."
	}
	return fmt.Sprintf("%s\n\nThe subject of this session is: %s.\n\nInstructions from the teacher:\n%s",
		framing, l.Subject, l.Prompt)
}
