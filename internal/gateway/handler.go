package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/interviewlab/voice-interviewer/internal/audio"
	"github.com/interviewlab/voice-interviewer/internal/config"
	"github.com/interviewlab/voice-interviewer/internal/interview"
	"github.com/interviewlab/voice-interviewer/internal/llm"
	"github.com/interviewlab/voice-interviewer/internal/observability"
	"github.com/interviewlab/voice-interviewer/internal/resume"
	"github.com/interviewlab/voice-interviewer/internal/session"
	"github.com/interviewlab/voice-interviewer/internal/stt"
	"github.com/interviewlab/voice-interviewer/internal/tts"
)

// maxUploadBytes caps resume uploads at 10 MB.
const maxUploadBytes = 10 << 20

// controlMessage is an inbound text frame on the interview socket.
type controlMessage struct {
	Type string `json:"type"`
}

// uploadResponse is the reply to a successful resume upload.
type uploadResponse struct {
	SessionID     string   `json:"session_id"`
	CandidateName string   `json:"candidate_name"`
	Role          string   `json:"role"`
	Skills        []string `json:"skills"`
	Projects      []string `json:"projects"`
}

// Gateway serves the resume upload API and the interview websocket.
type Gateway struct {
	cfg      *config.Config
	registry *session.Registry
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	// parseResume is swappable in tests
	parseResume func(path string) (*resume.Summary, error)
}

// New creates a gateway backed by the given session registry.
func New(cfg *config.Config, registry *session.Registry, logger zerolog.Logger) *Gateway {
	return &Gateway{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		parseResume: resume.ParseFile,
	}
}

// Routes registers the gateway's endpoints on the given mux.
func (g *Gateway) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/upload-resume", g.handleUploadResume)
	mux.HandleFunc("GET /api/sessions", g.handleListSessions)
	mux.HandleFunc("DELETE /api/session/{id}", g.handleDeleteSession)
	mux.HandleFunc("GET /ws/interview/{id}", g.handleInterviewSocket)
}

// handleUploadResume accepts a multipart form with the candidate's name,
// target role and PDF resume, parses the resume and registers a session.
func (g *Gateway) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	role := strings.TrimSpace(r.FormValue("role"))
	if name == "" || role == "" {
		writeError(w, http.StatusBadRequest, "name and role are required")
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		writeError(w, http.StatusBadRequest, "resume file is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "resume must be a PDF")
		return
	}

	path, err := g.saveUpload(file)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to save resume upload")
		writeError(w, http.StatusInternalServerError, "failed to store resume")
		return
	}

	summary, err := g.parseResume(path)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Failed to parse resume")
		_ = os.Remove(path)
		writeError(w, http.StatusUnprocessableEntity, "failed to parse resume")
		return
	}

	record := g.registry.Create(name, role, summary, path)
	writeJSON(w, http.StatusOK, uploadResponse{
		SessionID:     record.ID,
		CandidateName: record.CandidateName,
		Role:          record.Role,
		Skills:        summary.Skills,
		Projects:      summary.Projects,
	})
}

// handleListSessions returns all registered sessions, newest first.
func (g *Gateway) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": g.registry.List(),
	})
}

// handleDeleteSession removes a session and its uploaded resume.
func (g *Gateway) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := g.registry.Lookup(id); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	g.registry.Delete(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleInterviewSocket upgrades the connection and runs one interview.
func (g *Gateway) handleInterviewSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	logger := observability.WithSession(sessionID)

	rawConn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	conn := newWSConn(rawConn)

	// attaching exempts the record from TTL eviction for the duration
	// of the interview
	record, err := g.registry.Attach(sessionID)
	if err != nil {
		_ = conn.WriteJSON(interview.Payload{
			Type:    interview.PayloadError,
			Message: "unknown session, upload a resume first",
		})
		conn.CloseWithMessage(websocket.ClosePolicyViolation, "unknown session")
		return
	}

	orch := g.buildOrchestrator(record, conn, logger)
	if err := orch.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start interview")
		_ = conn.WriteJSON(interview.Payload{
			Type:    interview.PayloadError,
			Message: "failed to start interview",
		})
		conn.CloseWithMessage(websocket.CloseInternalServerErr, "startup failed")
		return
	}

	logger.Info().Str("candidate", record.CandidateName).Msg("Interview connection established")
	g.readLoop(rawConn, orch, logger)

	orch.Stop()
	g.registry.Delete(sessionID)
	_ = rawConn.Close()
	logger.Info().Msg("Interview connection closed")
}

// readLoop dispatches inbound frames until the connection drops: binary
// frames carry candidate audio, text frames carry control messages.
func (g *Gateway) readLoop(conn *websocket.Conn, orch *interview.Orchestrator, logger zerolog.Logger) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("Websocket read error")
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			orch.OnAudioChunk(data)

		case websocket.TextMessage:
			var control controlMessage
			if err := json.Unmarshal(data, &control); err != nil {
				logger.Warn().Err(err).Msg("Malformed control message")
				continue
			}
			switch control.Type {
			case "stop":
				// immediate shutdown, no closing remark
				orch.Stop()
				return
			case "ai_audio_completed":
				orch.OnPlaybackCompleted()
			default:
				logger.Debug().Str("type", control.Type).Msg("Unknown control message")
			}
		}
	}
}

// buildOrchestrator wires the collaborators for one interview session.
func (g *Gateway) buildOrchestrator(record *session.Record, conn *wsConn, logger zerolog.Logger) *interview.Orchestrator {
	profile := llm.CandidateProfile{
		Name: record.CandidateName,
		Role: record.Role,
	}
	if record.Resume != nil {
		profile.Skills = record.Resume.Skills
		profile.Projects = record.Resume.Projects
	}

	classifier, err := audio.NewEnergyClassifier(g.cfg.VADMode)
	if err != nil {
		// config validation already bounds the mode
		classifier, _ = audio.NewEnergyClassifier(2)
	}
	detector := audio.NewDetector(audio.DetectorConfig{
		SampleRate:       g.cfg.SampleRate,
		FrameDuration:    time.Duration(g.cfg.FrameDurationMs) * time.Millisecond,
		SilenceThreshold: g.cfg.SilenceThreshold(),
		Mode:             g.cfg.VADMode,
	}, classifier, logger)

	return interview.NewOrchestrator(interview.Options{
		Session:     interview.NewSession(record.ID, profile),
		Recognizer:  stt.NewDeepgramClient(g.cfg, logger),
		Interviewer: llm.NewGroqClient(g.cfg),
		Synthesizer: tts.NewElevenLabsClient(g.cfg, logger),
		Detector:    detector,
		Timer:       interview.NewTimer(g.cfg.InterviewDuration()),
		Emit:        func(p interview.Payload) error { return conn.WriteJSON(p) },
		Logger:      logger,
		Metrics:     observability.NewInterviewMetrics(record.ID),
		QueueSize:   g.cfg.EventQueueSize,
	})
}

// saveUpload streams the uploaded file into the upload directory under a
// fresh name.
func (g *Gateway) saveUpload(file io.Reader) (string, error) {
	if err := os.MkdirAll(g.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(g.cfg.UploadDir, uuid.NewString()+".pdf")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
