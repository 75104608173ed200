package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Interview metrics
	activeInterviews = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_gateway_active_interviews",
		Help: "Number of interview sessions currently in progress",
	})

	totalInterviews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_gateway_interviews_total",
		Help: "Total number of interview sessions started",
	})

	interviewDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_gateway_interview_duration_seconds",
		Help:    "Duration of interview sessions in seconds",
		Buckets: []float64{30, 60, 120, 300, 600, 900, 1800},
	})

	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_turns_total",
		Help: "Total number of turns appended to interview histories",
	}, []string{"speaker"})

	bargeInsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_gateway_barge_ins_total",
		Help: "Total number of candidate interruptions of playing audio",
	})

	silenceTriggersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_gateway_silence_triggers_total",
		Help: "Total number of end-of-utterance silence detections",
	})

	// Collaborator metrics
	sttRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_stt_requests_total",
		Help: "Total number of STT stream operations",
	}, []string{"status"})

	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_llm_requests_total",
		Help: "Total number of language-generation requests",
	}, []string{"status"})

	llmLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_gateway_llm_latency_seconds",
		Help:    "Language-generation latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	ttsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_tts_requests_total",
		Help: "Total number of speech-synthesis requests",
	}, []string{"status"})

	ttsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_gateway_tts_latency_seconds",
		Help:    "Speech-synthesis latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "interview_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"
)

// InterviewMetrics tracks metrics for a single interview session.
type InterviewMetrics struct {
	sessionID    string
	startTime    time.Time
	llmStartTime time.Time
	ttsStartTime time.Time
	mu           sync.Mutex
}

// NewInterviewMetrics creates a metrics tracker for one session.
func NewInterviewMetrics(sessionID string) *InterviewMetrics {
	return &InterviewMetrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordInterviewStart records the start of an interview session.
func (m *InterviewMetrics) RecordInterviewStart() {
	activeInterviews.Inc()
	totalInterviews.Inc()
}

// RecordInterviewEnd records the end of an interview session.
func (m *InterviewMetrics) RecordInterviewEnd() {
	activeInterviews.Dec()
	interviewDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordTurn records a turn appended to the history.
func (m *InterviewMetrics) RecordTurn(speaker string) {
	turnsTotal.WithLabelValues(speaker).Inc()
}

// RecordBargeIn records a candidate interruption.
func (m *InterviewMetrics) RecordBargeIn() {
	bargeInsTotal.Inc()
}

// RecordSilenceTrigger records an end-of-utterance detection.
func (m *InterviewMetrics) RecordSilenceTrigger() {
	silenceTriggersTotal.Inc()
}

// RecordSTTRequest records an STT stream operation outcome.
func (m *InterviewMetrics) RecordSTTRequest(success bool) {
	sttRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordLLMStart records the start of a language-generation call.
func (m *InterviewMetrics) RecordLLMStart() {
	m.mu.Lock()
	m.llmStartTime = time.Now()
	m.mu.Unlock()
}

// RecordLLMEnd records the end of a language-generation call.
func (m *InterviewMetrics) RecordLLMEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.llmStartTime.IsZero() {
		llmLatency.Observe(time.Since(m.llmStartTime).Seconds())
	}
	llmRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordTTSStart records the start of a speech-synthesis call.
func (m *InterviewMetrics) RecordTTSStart() {
	m.mu.Lock()
	m.ttsStartTime = time.Now()
	m.mu.Unlock()
}

// RecordTTSEnd records the end of a speech-synthesis call.
func (m *InterviewMetrics) RecordTTSEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ttsStartTime.IsZero() {
		ttsLatency.Observe(time.Since(m.ttsStartTime).Seconds())
	}
	ttsRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordError records an error by type and component.
func (m *InterviewMetrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed in a direction.
func (m *InterviewMetrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// UpdateCircuitBreakerState updates the circuit breaker state gauge.
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments the circuit breaker failure counter.
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
