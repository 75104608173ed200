package interview

// Payload types sent to the client.
const (
	PayloadAIResponse   = "ai_response"
	PayloadStopAIAudio  = "stop_ai_audio"
	PayloadInterviewEnd = "interview_end"
	PayloadError        = "error"
)

// Payload is one outbound message to the interview client. Audio carries
// base64-encoded MP3 when encoded as JSON.
type Payload struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Audio   []byte `json:"audio,omitempty"`
	Message string `json:"message,omitempty"`
}
