package gateway

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/interviewlab/voice-interviewer/internal/config"
	"github.com/interviewlab/voice-interviewer/internal/interview"
	"github.com/interviewlab/voice-interviewer/internal/resume"
	"github.com/interviewlab/voice-interviewer/internal/session"
)

func newTestGateway(t *testing.T) (*Gateway, *session.Registry) {
	t.Helper()

	cfg := &config.Config{
		UploadDir:                t.TempDir(),
		SampleRate:               16000,
		FrameDurationMs:          30,
		SilenceThresholdSeconds:  1,
		VADMode:                  2,
		EventQueueSize:           100,
		InterviewDurationMinutes: 10,
	}
	registry := session.NewRegistry(30*time.Minute, zerolog.Nop())
	t.Cleanup(registry.Close)

	g := New(cfg, registry, zerolog.Nop())
	g.parseResume = func(path string) (*resume.Summary, error) {
		return &resume.Summary{
			Skills:   []string{"Go", "Kafka"},
			Projects: []string{"Real-time analytics dashboard with Kafka consumers"},
		}, nil
	}
	return g, registry
}

func newTestServer(t *testing.T) (*httptest.Server, *Gateway, *session.Registry) {
	t.Helper()
	g, registry := newTestGateway(t)
	mux := http.NewServeMux()
	g.Routes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, g, registry
}

func multipartUpload(t *testing.T, name, role, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if name != "" {
		writer.WriteField("name", name)
	}
	if role != "" {
		writer.WriteField("role", role)
	}
	if filename != "" {
		part, err := writer.CreateFormFile("resume", filename)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write([]byte("%PDF-1.4 fake content"))
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestUploadResume(t *testing.T) {
	server, _, registry := newTestServer(t)

	body, contentType := multipartUpload(t, "Ana", "Engineer", "resume.pdf")
	resp, err := http.Post(server.URL+"/api/upload-resume", contentType, body)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var reply uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if reply.SessionID == "" {
		t.Error("Expected a session ID")
	}
	if reply.CandidateName != "Ana" || reply.Role != "Engineer" {
		t.Errorf("Unexpected reply: %+v", reply)
	}
	if len(reply.Skills) != 2 {
		t.Errorf("Expected parsed skills in reply, got %v", reply.Skills)
	}

	if _, err := registry.Lookup(reply.SessionID); err != nil {
		t.Errorf("Expected session registered: %v", err)
	}
}

func TestUploadResume_MissingFields(t *testing.T) {
	server, _, _ := newTestServer(t)

	body, contentType := multipartUpload(t, "", "Engineer", "resume.pdf")
	resp, err := http.Post(server.URL+"/api/upload-resume", contentType, body)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestUploadResume_RejectsNonPDF(t *testing.T) {
	server, _, _ := newTestServer(t)

	body, contentType := multipartUpload(t, "Ana", "Engineer", "resume.docx")
	resp, err := http.Post(server.URL+"/api/upload-resume", contentType, body)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestListSessions(t *testing.T) {
	server, _, registry := newTestServer(t)
	registry.Create("Ana", "Engineer", nil, "")

	resp, err := http.Get(server.URL + "/api/sessions")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var reply struct {
		Sessions []session.Record `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(reply.Sessions) != 1 || reply.Sessions[0].CandidateName != "Ana" {
		t.Errorf("Unexpected sessions: %+v", reply.Sessions)
	}
}

func TestDeleteSession(t *testing.T) {
	server, _, registry := newTestServer(t)
	record := registry.Create("Ana", "Engineer", nil, "")

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/session/"+record.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if registry.Len() != 0 {
		t.Error("Expected session removed")
	}
}

func TestDeleteSession_Unknown(t *testing.T) {
	server, _, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/session/no-such-id", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestInterviewSocket_UnknownSession(t *testing.T) {
	server, _, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/interview/no-such-id"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	var payload interview.Payload
	if err := conn.ReadJSON(&payload); err != nil {
		t.Fatalf("Failed to read payload: %v", err)
	}
	if payload.Type != interview.PayloadError {
		t.Errorf("Expected error payload, got %s", payload.Type)
	}
}
