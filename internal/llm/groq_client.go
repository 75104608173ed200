package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/interviewlab/voice-interviewer/internal/config"
)

// GroqClient implements Interviewer using Groq's OpenAI-compatible
// chat completions API.
type GroqClient struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client

	mu           sync.RWMutex
	systemPrompt string
}

// chatMessage is one message in the chat completions wire format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat completions request payload.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatResponse is the chat completions response payload.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewGroqClient creates a new Groq chat completions client.
func NewGroqClient(cfg *config.Config) *GroqClient {
	return &GroqClient{
		apiKey:     cfg.GroqAPIKey,
		apiURL:     cfg.GroqAPIURL,
		model:      cfg.GroqModel,
		httpClient: &http.Client{},
	}
}

// Greeting builds the system framing from the candidate profile and
// produces the opening utterance.
func (c *GroqClient) Greeting(ctx context.Context, profile CandidateProfile) (string, error) {
	system := buildSystemPrompt(profile)

	c.mu.Lock()
	c.systemPrompt = system
	c.mu.Unlock()

	greetingPrompt := fmt.Sprintf(
		"Introduce yourself as Nikki and ask %s if they're ready to begin the %s interview. Keep it brief and friendly.",
		profile.Name, profile.Role)

	return c.complete(ctx, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: greetingPrompt},
	})
}

// Reply produces the next interviewer utterance for the given turn history.
func (c *GroqClient) Reply(ctx context.Context, history []Message) (string, error) {
	c.mu.RLock()
	system := c.systemPrompt
	c.mu.RUnlock()

	messages := make([]chatMessage, 0, len(history)+1)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	for _, m := range history {
		role := "user"
		if m.Role == RoleInterviewer {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: m.Content})
	}

	return c.complete(ctx, messages)
}

// Closing produces the end-of-interview remark.
func (c *GroqClient) Closing(ctx context.Context, candidateName string) (string, error) {
	c.mu.RLock()
	system := c.systemPrompt
	c.mu.RUnlock()

	closingPrompt := fmt.Sprintf(
		"The interview with %s is now complete. Thank them warmly and professionally, and let them know what to expect next. Keep it brief.",
		candidateName)

	messages := []chatMessage{}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: closingPrompt})

	return c.complete(ctx, messages)
}

// complete performs one chat completions call and returns the assistant text.
func (c *GroqClient) complete(ctx context.Context, messages []chatMessage) (string, error) {
	jsonData, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat completions API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completions API returned status %d: %s", resp.StatusCode, body)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat completions API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completions API returned no choices")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("chat completions API returned empty content")
	}
	return text, nil
}

// buildSystemPrompt assembles the interviewer persona from the candidate's
// resume summary.
func buildSystemPrompt(p CandidateProfile) string {
	skills := strings.Join(p.Skills, ", ")
	if skills == "" {
		skills = "various skills"
	}

	projects := p.Projects
	if len(projects) > 2 {
		projects = projects[:2]
	}
	projectsText := strings.Join(projects, "\n")
	if projectsText == "" {
		projectsText = "interesting projects"
	}

	return fmt.Sprintf(`You are Nikki, a professional and friendly AI interviewer conducting a %s interview.
Candidate Information:
- Name: %s
- Role: %s
- Skills: %s
- Notable Projects: %s
Interview Guidelines:
- Be conversational, friendly, and professional
- Ask relevant technical and behavioral questions based on their resume
- Follow up on their answers with deeper questions
- Keep responses concise (2-3 sentences max)
- When the user responds with a simple response like "yes" or "ok", ask the same question again and make sure the user knows the answer
- Adapt questions based on their experience level
- Cover both technical skills and soft skills
- End gracefully when told the interview is complete
Start with a warm greeting introducing yourself, and always avoid generating ** or other symbols in the text; make sure it is in a human readable form.`,
		p.Role, p.Name, p.Role, skills, projectsText)
}
