package app

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"skill-assessment-service/internal/domain"
)

// fallbackFeedback replaces the summary when the summarizer fails;
// completion is never blocked on it.
const fallbackFeedback = "Could not generate final feedback due to an error."

// captureUnsupportedNotice is surfaced when a client without speech
// support asks to start capture.
const captureUnsupportedNotice = "Speech capture is not available; type your answer instead."

// ratingFailedNotice is surfaced when the rater fails; the question stays
// open for another submit.
const ratingFailedNotice = "Could not rate your answer. Please submit again."

// Session runs one skill verification attempt. All state transitions
// happen on a single event loop goroutine; intents, capture output,
// timer ticks, and async service results are serialized through the
// same queue.
type Session struct {
	id        string
	skillName string
	skillID   string

	questions  QuestionProvider
	rater      AnswerRater
	summarizer FeedbackSummarizer
	skills     VerificationStore

	callTimeout time.Duration

	events     chan event
	ticks      <-chan time.Time
	stopTicker func()
	done       chan struct{}
	stopped    chan struct{}
	closeOnce  sync.Once

	// Event-loop-owned. Never touched outside run().
	state        domain.State
	questionSet  []string
	currentIndex int
	answers      map[int]domain.Rating
	transcripts  map[int]string
	timer        countdown
	capture      *capture
	notice       string
	failure      string
	result       *domain.Result
	inflight     bool

	mu          sync.RWMutex
	snap        domain.SessionSnapshot
	subscribers map[chan domain.SessionSnapshot]struct{}
}

type sessionConfig struct {
	id               string
	skillName        string
	skillID          string
	captureSupported bool
	questionSeconds  int
	callTimeout      time.Duration

	// ticks overrides the wall-clock ticker in tests.
	ticks <-chan time.Time
}

func newSession(cfg sessionConfig, questions QuestionProvider, rater AnswerRater, summarizer FeedbackSummarizer, skills VerificationStore) *Session {
	if cfg.callTimeout <= 0 {
		cfg.callTimeout = 60 * time.Second
	}

	s := &Session{
		id:          cfg.id,
		skillName:   cfg.skillName,
		skillID:     cfg.skillID,
		questions:   questions,
		rater:       rater,
		summarizer:  summarizer,
		skills:      skills,
		callTimeout: cfg.callTimeout,
		events:      make(chan event, 32),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		state:       domain.StateLoading,
		answers:     make(map[int]domain.Rating),
		transcripts: make(map[int]string),
		timer:       newCountdown(cfg.questionSeconds),
		capture:     newCapture(cfg.captureSupported),
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}

	if cfg.ticks != nil {
		s.ticks = cfg.ticks
	} else {
		ticker := time.NewTicker(time.Second)
		s.ticks = ticker.C
		s.stopTicker = ticker.Stop
	}

	s.snap = s.buildSnapshot()

	go s.run()
	go s.loadQuestions()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot returns the latest published view of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe returns a channel receiving a snapshot after every state
// change, starting with the current one. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	if s.subscribers == nil {
		// Session already torn down; hand back a closed channel.
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snap
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if s.subscribers != nil {
			if _, ok := s.subscribers[ch]; ok {
				delete(s.subscribers, ch)
				close(ch)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close tears the session down: the timer stops, capture stops, and
// results of still-in-flight service calls are discarded. Safe to call
// more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	<-s.stopped
}

// User intents. Each is queued into the event loop; a closed session
// rejects them with ErrSessionClosed.

// StartCapture begins speech transcription for the active question.
func (s *Session) StartCapture() error { return s.dispatch(intentStartCapture{}) }

// StopCapture ends transcription, retaining committed fragments.
func (s *Session) StopCapture() error { return s.dispatch(intentStopCapture{}) }

// ResetTranscript clears the answer buffer for the active question.
func (s *Session) ResetTranscript() error { return s.dispatch(intentResetTranscript{}) }

// Edit overwrites the answer buffer with manually typed text.
func (s *Session) Edit(text string) error { return s.dispatch(intentEdit{Text: text}) }

// Submit commits the current buffer as the answer to the active question.
func (s *Session) Submit() error { return s.dispatch(intentSubmit{}) }

// Fragment feeds a transcription result into the answer buffer.
func (s *Session) Fragment(text string, final bool) error {
	return s.dispatch(captureFragment{Text: text, Final: final})
}

// EndCapture signals that the transcription stream closed on its own.
func (s *Session) EndCapture() error { return s.dispatch(captureEnded{}) }

func (s *Session) dispatch(ev event) error {
	select {
	case <-s.done:
		return domain.ErrSessionClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return domain.ErrSessionClosed
	}
}

// deliver queues an async result, dropping it if the session was closed
// in the meantime. Abandoned calls must never mutate a dead session.
func (s *Session) deliver(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) run() {
	defer close(s.stopped)
	if s.stopTicker != nil {
		defer s.stopTicker()
	}

	for {
		select {
		case <-s.done:
			s.teardown()
			return
		case <-s.ticks:
			s.onTick()
		case ev := <-s.events:
			s.apply(ev)
		}
		s.publish()
	}
}

// apply is the single transition function: every mutation of session
// state goes through here, on one goroutine.
func (s *Session) apply(ev event) {
	switch ev := ev.(type) {
	case questionsLoaded:
		s.onQuestionsLoaded(ev)
	case intentStartCapture:
		if s.state != domain.StateInProgress {
			return
		}
		if err := s.capture.start(); err != nil {
			s.notice = captureUnsupportedNotice
		}
	case intentStopCapture:
		s.capture.stop()
	case intentResetTranscript:
		if s.state == domain.StateInProgress {
			s.capture.reset()
		}
	case intentEdit:
		if s.state == domain.StateInProgress {
			s.capture.edit(ev.Text)
		}
	case captureFragment:
		if s.state == domain.StateInProgress {
			s.capture.fragment(ev.Text, ev.Final)
		}
	case captureEnded:
		s.capture.stop()
	case intentSubmit:
		s.beginSubmit()
	case ratingDone:
		s.onRatingDone(ev)
	case finalized:
		s.onFinalized(ev)
	}
}

func (s *Session) onTick() {
	if s.state != domain.StateInProgress || s.inflight {
		return
	}
	if s.timer.tick() {
		// Expiry behaves exactly like a manual submit with whatever
		// transcript exists at this instant.
		s.beginSubmit()
	}
}

func (s *Session) loadQuestions() {
	ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
	defer cancel()

	questions, err := s.questions.Questions(ctx, s.skillName)
	s.deliver(questionsLoaded{Questions: questions, Err: err})
}

func (s *Session) onQuestionsLoaded(ev questionsLoaded) {
	if s.state != domain.StateLoading {
		return
	}
	if ev.Err != nil {
		s.fail("could not prepare the assessment: " + ev.Err.Error())
		return
	}
	if len(ev.Questions) == 0 {
		s.fail(domain.ErrNoQuestions.Error())
		return
	}
	// A source may report internal failure as a single sentinel question
	// instead of erroring outright.
	if strings.HasPrefix(ev.Questions[0], domain.QuestionErrorSentinel) {
		s.fail(ev.Questions[0])
		return
	}

	s.questionSet = ev.Questions
	s.currentIndex = 0
	s.timer.reset()
	s.state = domain.StateInProgress
}

// beginSubmit moves the active question into Submitting. Duplicate
// triggers for the same index (double submit, or a tick racing a manual
// submit) collapse into one rating call.
func (s *Session) beginSubmit() {
	if s.state != domain.StateInProgress || s.inflight {
		return
	}
	if _, answered := s.answers[s.currentIndex]; answered {
		return
	}

	s.capture.stop()
	answer := strings.TrimSpace(s.capture.text())
	if answer == "" {
		answer = domain.NoAnswer
	}

	s.state = domain.StateSubmitting
	s.inflight = true
	s.notice = ""

	index := s.currentIndex
	question := s.questionSet[index]

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
		defer cancel()

		rating, err := s.rater.Rate(ctx, question, answer)
		s.deliver(ratingDone{Index: index, Answer: answer, Rating: rating, Err: err})
	}()
}

func (s *Session) onRatingDone(ev ratingDone) {
	if s.state != domain.StateSubmitting || ev.Index != s.currentIndex {
		return
	}
	s.inflight = false

	if ev.Err != nil {
		// Recoverable: the question stays open, the transcript is
		// preserved, and the index does not advance.
		log.Printf("session %s: rating failed for question %d: %v", s.id, ev.Index, ev.Err)
		s.notice = ratingFailedNotice
		s.state = domain.StateInProgress
		return
	}

	s.transcripts[ev.Index] = ev.Answer
	s.answers[ev.Index] = ev.Rating

	if ev.Index+1 < len(s.questionSet) {
		s.currentIndex++
		s.timer.reset()
		s.capture.stop()
		s.capture.reset()
		s.state = domain.StateInProgress
		return
	}

	s.finalize()
}

// finalize aggregates ratings, decides pass/fail, persists the verified
// flag, and requests the closing feedback. The session stays in
// Submitting until the finalized event lands.
func (s *Session) finalize() {
	s.inflight = true
	s.currentIndex = len(s.questionSet)

	total, max, passed := s.aggregate()

	skillName := s.skillName
	skillID := s.skillID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
		defer cancel()

		if passed && skillID != "" && s.skills != nil {
			// Optimistic UI truth: a persistence failure is logged but
			// does not flip the verdict.
			if err := s.skills.MarkVerified(ctx, skillID); err != nil {
				log.Printf("session %s: could not mark skill %s verified: %v", s.id, skillID, err)
			}
		}

		feedback, err := s.summarizer.FinalFeedback(ctx, skillName, total, max)
		if err != nil {
			log.Printf("session %s: final feedback failed: %v", s.id, err)
			feedback = fallbackFeedback
		}
		s.deliver(finalized{Feedback: feedback})
	}()
}

func (s *Session) onFinalized(ev finalized) {
	if s.state != domain.StateSubmitting {
		return
	}
	s.inflight = false

	total, max, passed := s.aggregate()
	review := make([]domain.QuestionReview, len(s.questionSet))
	for i, q := range s.questionSet {
		rating := s.answers[i]
		review[i] = domain.QuestionReview{
			Question:   q,
			Answer:     s.transcripts[i],
			Score:      rating.Score,
			Suggestion: rating.Suggestion,
		}
	}

	s.result = &domain.Result{
		TotalScore:    total,
		MaxScore:      max,
		Passed:        passed,
		FinalFeedback: ev.Feedback,
		Review:        review,
	}
	s.state = domain.StateComplete
}

// aggregate computes the session totals. Passing requires every rated
// answer to score at least PassFloor; a single sub-floor answer fails
// the whole assessment.
func (s *Session) aggregate() (total, max int, passed bool) {
	passed = true
	for i := range s.questionSet {
		rating, ok := s.answers[i]
		if !ok {
			passed = false
			continue
		}
		total += rating.Score
		if rating.Score < PassFloor {
			passed = false
		}
	}
	max = len(s.questionSet) * 10
	return total, max, passed
}

// PassFloor is the minimum per-question score required for verification.
const PassFloor = 4

func (s *Session) fail(msg string) {
	s.failure = msg
	s.capture.stop()
	s.state = domain.StateFailed
}

func (s *Session) buildSnapshot() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionID:        s.id,
		SkillName:        s.skillName,
		State:            s.state,
		QuestionIndex:    s.currentIndex,
		QuestionCount:    len(s.questionSet),
		RemainingSeconds: s.timer.remaining,
		Transcript:       s.capture.text(),
		CaptureSupported: s.capture.supported,
		CaptureRunning:   s.capture.running,
		Notice:           s.notice,
		Error:            s.failure,
		Result:           s.result,
	}
	if s.currentIndex < len(s.questionSet) {
		snap.Question = s.questionSet[s.currentIndex]
	}
	return snap
}

func (s *Session) publish() {
	snap := s.buildSnapshot()

	s.mu.Lock()
	s.snap = snap
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow client never blocks the
			// event loop.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	s.mu.Unlock()
}

func (s *Session) teardown() {
	s.capture.stop()

	s.mu.Lock()
	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	s.mu.Unlock()
}
