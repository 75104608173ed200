package llm

import "context"

// Role values for conversation messages.
const (
	RoleInterviewer = "interviewer"
	RoleCandidate   = "candidate"
)

// Message is one utterance of the conversation history, ordered oldest first.
type Message struct {
	Role    string // RoleInterviewer or RoleCandidate
	Content string
}

// CandidateProfile carries the resume-derived framing for the interview.
type CandidateProfile struct {
	Name     string
	Role     string
	Skills   []string
	Projects []string
}

// Interviewer is the interface for the language-generation collaborator.
type Interviewer interface {
	// Greeting produces the opening utterance for a candidate
	Greeting(ctx context.Context, profile CandidateProfile) (string, error)

	// Reply produces the next interviewer utterance given the full ordered
	// turn history
	Reply(ctx context.Context, history []Message) (string, error)

	// Closing produces the end-of-interview remark
	Closing(ctx context.Context, candidateName string) (string, error)
}
