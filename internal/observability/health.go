package observability

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus is the payload returned by the health endpoints.
type HealthStatus struct {
	Status               string `json:"status"`
	Service              string `json:"service"`
	Version              string `json:"version"`
	Timestamp            string `json:"timestamp"`
	DeepgramConfigured   bool   `json:"deepgram_configured"`
	GroqConfigured       bool   `json:"groq_configured"`
	ElevenLabsConfigured bool   `json:"elevenlabs_configured"`
}

// CollaboratorKeys reports which collaborator credentials are present.
type CollaboratorKeys struct {
	Deepgram   bool
	Groq       bool
	ElevenLabs bool
}

// HealthCheckHandler reports liveness plus which collaborators are configured.
func HealthCheckHandler(keys CollaboratorKeys) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, "healthy", keys)
	}
}

// ReadinessHandler reports readiness: the service can only hold interviews
// when all three collaborator credentials are configured.
func ReadinessHandler(keys CollaboratorKeys) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if keys.Deepgram && keys.Groq && keys.ElevenLabs {
			writeHealth(w, http.StatusOK, "ready", keys)
			return
		}
		writeHealth(w, http.StatusServiceUnavailable, "not_ready", keys)
	}
}

func writeHealth(w http.ResponseWriter, code int, status string, keys CollaboratorKeys) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(HealthStatus{
		Status:               status,
		Service:              "interview-gateway",
		Version:              "1.0.0",
		Timestamp:            time.Now().UTC().Format(time.RFC3339),
		DeepgramConfigured:   keys.Deepgram,
		GroqConfigured:       keys.Groq,
		ElevenLabsConfigured: keys.ElevenLabs,
	})
}
