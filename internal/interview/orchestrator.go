package interview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/interviewlab/voice-interviewer/internal/audio"
	"github.com/interviewlab/voice-interviewer/internal/llm"
	"github.com/interviewlab/voice-interviewer/internal/observability"
	"github.com/interviewlab/voice-interviewer/internal/stt"
	"github.com/interviewlab/voice-interviewer/internal/tts"
)

// closingFallback is spoken when the closing remark cannot be generated.
const closingFallback = "Thank you so much for your time today, %s. We'll be in touch soon!"

// EmitFunc delivers one payload to the interview client.
type EmitFunc func(Payload) error

type eventKind int

const (
	eventAudio eventKind = iota
	eventPlaybackDone
)

type event struct {
	kind  eventKind
	audio []byte
}

// Options configures an Orchestrator. All collaborators are required
// except Metrics, which defaults to a fresh tracker.
type Options struct {
	Session     *Session
	Recognizer  stt.Recognizer
	Interviewer llm.Interviewer
	Synthesizer tts.Synthesizer
	Detector    *audio.Detector
	Timer       *Timer
	Emit        EmitFunc
	Logger      zerolog.Logger
	Metrics     *observability.InterviewMetrics
	QueueSize   int
}

// Orchestrator drives one interview conversation: it feeds candidate audio
// to recognition and end-of-utterance detection, schedules interviewer
// responses after sustained silence, handles interruptions of playing
// audio, and ends the interview when the timer expires.
//
// A single worker goroutine owns all turn-taking decisions. Audio and
// playback events arrive through a bounded queue; transcripts arrive on
// the recognizer's channel. Response generation runs on a tracked
// background goroutine guarded by a single-flight flag.
type Orchestrator struct {
	session     *Session
	recognizer  stt.Recognizer
	interviewer llm.Interviewer
	synthesizer tts.Synthesizer
	detector    *audio.Detector
	timer       *Timer
	emit        EmitFunc
	logger      zerolog.Logger
	metrics     *observability.InterviewMetrics

	frames *audio.FrameBuffer
	events chan event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started    atomic.Bool
	stopped    atomic.Bool
	generating atomic.Bool

	mu         sync.Mutex
	active     bool
	ended      bool
	aiSpeaking bool
	pending    strings.Builder
}

// NewOrchestrator creates an orchestrator from the given options.
func NewOrchestrator(opts Options) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewInterviewMetrics(opts.Session.ID)
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	return &Orchestrator{
		session:     opts.Session,
		recognizer:  opts.Recognizer,
		interviewer: opts.Interviewer,
		synthesizer: opts.Synthesizer,
		detector:    opts.Detector,
		timer:       opts.Timer,
		emit:        opts.Emit,
		logger:      opts.Logger,
		metrics:     metrics,
		frames:      audio.NewFrameBuffer(opts.Detector.FrameSize()),
		events:      make(chan event, queueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start establishes the recognition stream, begins the interview timer,
// launches the worker and speaks the greeting. It may be called once.
func (o *Orchestrator) Start() error {
	if !o.started.CompareAndSwap(false, true) {
		return fmt.Errorf("orchestrator already started")
	}

	if err := o.recognizer.Start(); err != nil {
		o.metrics.RecordSTTRequest(false)
		return fmt.Errorf("failed to start recognition: %w", err)
	}
	o.metrics.RecordSTTRequest(true)

	// The callback runs on the worker goroutine, inside handleAudio
	o.detector.SetSilenceCallback(o.onSilenceDetected)

	o.mu.Lock()
	o.active = true
	o.mu.Unlock()

	o.timer.Start()
	o.metrics.RecordInterviewStart()

	o.wg.Add(1)
	go o.run()

	if err := o.speakGreeting(); err != nil {
		o.Stop()
		return err
	}

	o.logger.Info().
		Str("candidate", o.session.Profile.Name).
		Str("role", o.session.Profile.Role).
		Dur("duration", o.timer.Remaining()).
		Msg("Interview started")
	return nil
}

// OnAudioChunk accepts a raw candidate audio chunk of any size. Chunks
// are dropped with a warning when the event queue is full.
func (o *Orchestrator) OnAudioChunk(data []byte) {
	chunk := make([]byte, len(data))
	copy(chunk, data)

	select {
	case o.events <- event{kind: eventAudio, audio: chunk}:
	default:
		o.logger.Warn().Int("bytes", len(data)).Msg("Event queue full, dropping audio chunk")
		o.metrics.RecordError("queue_full", "orchestrator")
	}
}

// OnPlaybackCompleted signals that the client finished playing the
// current interviewer audio.
func (o *Orchestrator) OnPlaybackCompleted() {
	select {
	case o.events <- event{kind: eventPlaybackDone}:
	default:
		o.logger.Warn().Msg("Event queue full, dropping playback notification")
	}
}

// EndInterview ends the interview with a closing remark. Idempotent.
func (o *Orchestrator) EndInterview() {
	o.endInterview("requested")
}

// Stop tears the session down: it marks the session inactive, cancels
// any in-flight generation, stops the worker and closes the recognition
// stream. Idempotent and safe to call at any point.
func (o *Orchestrator) Stop() {
	if !o.stopped.CompareAndSwap(false, true) {
		return
	}

	o.mu.Lock()
	wasActive := o.active
	o.active = false
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()

	if err := o.recognizer.Close(); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to close recognition stream")
	}

	if wasActive {
		o.metrics.RecordInterviewEnd()
	}
	o.logger.Info().Int("turns", len(o.session.Turns)).Msg("Interview session stopped")
}

// run is the single worker that owns all turn-taking state transitions.
func (o *Orchestrator) run() {
	defer o.wg.Done()

	expiry := time.NewTimer(o.timer.Remaining())
	defer expiry.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return

		case <-expiry.C:
			o.endInterview("time expired")

		case ev := <-o.events:
			switch ev.kind {
			case eventAudio:
				o.handleAudio(ev.audio)
			case eventPlaybackDone:
				o.handlePlaybackCompleted()
			}

		case transcript, ok := <-o.recognizer.Transcripts():
			if !ok {
				return
			}
			o.handleTranscript(transcript)
		}
	}
}

// handleAudio forwards a chunk to recognition and runs end-of-utterance
// detection over the complete frames it yields. While interviewer audio
// is playing the chunk is forwarded only, so recognition can still catch
// an interruption, but the buffer and detector stay untouched.
func (o *Orchestrator) handleAudio(chunk []byte) {
	if !o.isActive() {
		return
	}
	if o.timer.IsExpired() {
		o.endInterview("time expired")
		return
	}

	o.metrics.RecordAudioBytes("in", int64(len(chunk)))

	if err := o.recognizer.SendAudio(chunk); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to forward audio to recognition")
		o.metrics.RecordError("send_audio", "stt")
	}

	o.mu.Lock()
	speaking := o.aiSpeaking
	o.mu.Unlock()
	if speaking {
		return
	}

	o.frames.Append(chunk)
	for _, frame := range o.frames.Drain() {
		o.detector.ProcessFrame(frame)
	}
}

// handleTranscript accumulates final transcripts and treats any
// transcript that arrives while interviewer audio is playing as an
// interruption: playback is stopped and the pending utterance is
// replaced with the interrupting text.
func (o *Orchestrator) handleTranscript(transcript stt.Transcript) {
	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		return
	}

	if o.aiSpeaking {
		o.aiSpeaking = false
		o.pending.Reset()
		o.pending.WriteString(transcript.Text)
		o.mu.Unlock()

		o.detector.Reset()
		o.logger.Info().Str("text", transcript.Text).Msg("Candidate interrupted playback")
		o.metrics.RecordBargeIn()
		o.emitPayload(Payload{Type: PayloadStopAIAudio})
		return
	}

	if transcript.IsFinal {
		if o.pending.Len() > 0 {
			o.pending.WriteString(" ")
		}
		o.pending.WriteString(transcript.Text)
	}
	o.mu.Unlock()
}

// handlePlaybackCompleted clears the playing flag so later transcripts
// are no longer treated as interruptions.
func (o *Orchestrator) handlePlaybackCompleted() {
	o.mu.Lock()
	o.aiSpeaking = false
	o.mu.Unlock()
}

// onSilenceDetected fires after sustained silence following confirmed
// speech. It runs on the worker goroutine.
func (o *Orchestrator) onSilenceDetected() {
	o.metrics.RecordSilenceTrigger()

	if o.timer.IsExpired() {
		o.endInterview("time expired")
		return
	}
	o.scheduleResponse()
}

// scheduleResponse captures the accumulated candidate utterance, appends
// it to the history and launches generation in the background. At most
// one generation runs at a time; the trigger is dropped when one is
// already in flight.
func (o *Orchestrator) scheduleResponse() {
	if !o.generating.CompareAndSwap(false, true) {
		o.logger.Debug().Msg("Response generation already in progress, skipping trigger")
		return
	}

	o.mu.Lock()
	if !o.active || o.ended || o.aiSpeaking {
		o.mu.Unlock()
		o.generating.Store(false)
		return
	}
	utterance := strings.TrimSpace(o.pending.String())
	if utterance == "" {
		o.mu.Unlock()
		o.generating.Store(false)
		return
	}
	o.pending.Reset()

	// Captured before the collaborator calls so speech arriving during
	// generation cannot merge into the turn being answered
	o.session.AddTurn(SpeakerCandidate, utterance)
	o.aiSpeaking = true
	history := o.session.History()
	o.mu.Unlock()

	o.detector.Reset()

	o.metrics.RecordTurn(SpeakerCandidate)
	o.logger.Info().Str("text", utterance).Msg("Candidate turn captured")

	o.wg.Add(1)
	go o.generateResponse(history)
}

// generateResponse produces the next interviewer utterance and its audio,
// then emits it. Runs on a tracked background goroutine.
func (o *Orchestrator) generateResponse(history []llm.Message) {
	defer o.wg.Done()
	defer o.generating.Store(false)

	o.metrics.RecordLLMStart()
	reply, err := o.interviewer.Reply(o.ctx, history)
	o.metrics.RecordLLMEnd(err == nil)
	if err != nil {
		o.logger.Error().Err(err).Msg("Failed to generate interviewer response")
		o.metrics.RecordError("generate", "llm")
		o.abandonResponse("Failed to generate response")
		return
	}

	o.metrics.RecordTTSStart()
	audioData, err := o.synthesizer.Synthesize(o.ctx, reply)
	o.metrics.RecordTTSEnd(err == nil)
	if err != nil {
		o.logger.Error().Err(err).Msg("Failed to synthesize interviewer response")
		o.metrics.RecordError("synthesize", "tts")
		o.abandonResponse("Failed to synthesize response")
		return
	}

	o.mu.Lock()
	if !o.active || o.ended {
		o.mu.Unlock()
		return
	}
	o.session.AddTurn(SpeakerInterviewer, reply)
	o.mu.Unlock()

	o.metrics.RecordTurn(SpeakerInterviewer)
	o.metrics.RecordAudioBytes("out", int64(len(audioData)))
	o.emitPayload(Payload{Type: PayloadAIResponse, Text: reply, Audio: audioData})
}

// abandonResponse recovers from a failed generation: the candidate turn
// stays in the history, playback state is cleared so the session does not
// sit in a phantom speaking state, and the failure is surfaced to the
// client. The session stays active.
func (o *Orchestrator) abandonResponse(message string) {
	o.mu.Lock()
	o.aiSpeaking = false
	o.mu.Unlock()
	o.emitPayload(Payload{Type: PayloadError, Message: message})
}

// speakGreeting generates and emits the opening utterance.
func (o *Orchestrator) speakGreeting() error {
	o.metrics.RecordLLMStart()
	greeting, err := o.interviewer.Greeting(o.ctx, o.session.Profile)
	o.metrics.RecordLLMEnd(err == nil)
	if err != nil {
		o.metrics.RecordError("greeting", "llm")
		return fmt.Errorf("failed to generate greeting: %w", err)
	}

	o.metrics.RecordTTSStart()
	audioData, err := o.synthesizer.Synthesize(o.ctx, greeting)
	o.metrics.RecordTTSEnd(err == nil)
	if err != nil {
		o.metrics.RecordError("synthesize", "tts")
		return fmt.Errorf("failed to synthesize greeting: %w", err)
	}

	o.mu.Lock()
	o.session.AddTurn(SpeakerInterviewer, greeting)
	o.aiSpeaking = true
	o.mu.Unlock()

	o.metrics.RecordTurn(SpeakerInterviewer)
	o.metrics.RecordAudioBytes("out", int64(len(audioData)))
	o.emitPayload(Payload{Type: PayloadAIResponse, Text: greeting, Audio: audioData})
	return nil
}

// endInterview emits the closing remark and marks the session ended.
// After the end payload no further payloads are emitted. Idempotent.
func (o *Orchestrator) endInterview(reason string) {
	o.mu.Lock()
	if o.ended || !o.active {
		o.mu.Unlock()
		return
	}
	o.ended = true
	candidateName := o.session.Profile.Name
	o.mu.Unlock()

	o.logger.Info().Str("reason", reason).Msg("Ending interview")

	closing, err := o.interviewer.Closing(o.ctx, candidateName)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Failed to generate closing remark, using fallback")
		o.metrics.RecordError("closing", "llm")
		closing = fmt.Sprintf(closingFallback, candidateName)
	}

	var audioData []byte
	if synthesized, err := o.synthesizer.Synthesize(o.ctx, closing); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to synthesize closing remark")
		o.metrics.RecordError("synthesize", "tts")
	} else {
		audioData = synthesized
	}

	o.emitPayload(Payload{Type: PayloadInterviewEnd, Text: closing, Audio: audioData})

	o.mu.Lock()
	o.active = false
	o.mu.Unlock()

	if err := o.recognizer.Close(); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to close recognition stream")
	}
	o.metrics.RecordInterviewEnd()
}

// emitPayload delivers a payload if the session is still active. The
// interview_end payload is the one allowed emission while ended.
func (o *Orchestrator) emitPayload(p Payload) {
	o.mu.Lock()
	allowed := o.active
	o.mu.Unlock()
	if !allowed {
		return
	}

	if err := o.emit(p); err != nil {
		o.logger.Warn().Err(err).Str("type", p.Type).Msg("Failed to deliver payload")
		o.metrics.RecordError("emit", "gateway")
	}
}

func (o *Orchestrator) isActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}
