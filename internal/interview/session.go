package interview

import (
	"time"

	"github.com/interviewlab/voice-interviewer/internal/llm"
)

// Speaker labels for conversation turns.
const (
	SpeakerInterviewer = "interviewer"
	SpeakerCandidate   = "candidate"
)

// Turn is one utterance of the conversation, attributed to a speaker.
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Session holds the state of one interview conversation. The turn log is
// append-only and ordered oldest first. Session is not safe for concurrent
// use; the orchestrator serializes access.
type Session struct {
	ID        string
	Profile   llm.CandidateProfile
	Turns     []Turn
	CreatedAt time.Time
}

// NewSession creates a session for the given candidate profile.
func NewSession(id string, profile llm.CandidateProfile) *Session {
	return &Session{
		ID:        id,
		Profile:   profile,
		CreatedAt: time.Now(),
	}
}

// AddTurn appends an utterance to the conversation log.
func (s *Session) AddTurn(speaker, text string) {
	s.Turns = append(s.Turns, Turn{Speaker: speaker, Text: text})
}

// History returns the turn log as ordered conversation messages.
func (s *Session) History() []llm.Message {
	history := make([]llm.Message, 0, len(s.Turns))
	for _, turn := range s.Turns {
		history = append(history, llm.Message{Role: turn.Speaker, Content: turn.Text})
	}
	return history
}
