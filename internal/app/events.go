package app

import "skill-assessment-service/internal/domain"

// event is a tagged message consumed by the session's single event loop.
// User intents, capture output, and async service results all arrive
// through the same queue, so no two transitions ever run concurrently.
type event interface {
	isEvent()
}

// intentStartCapture begins speech transcription for the active question.
type intentStartCapture struct{}

// intentStopCapture ends speech transcription, keeping committed text.
type intentStopCapture struct{}

// intentResetTranscript clears the answer buffer.
type intentResetTranscript struct{}

// intentEdit overwrites the answer buffer with typed text.
type intentEdit struct {
	Text string
}

// intentSubmit commits the current buffer as the answer.
type intentSubmit struct{}

// captureFragment is a transcription result from the capture source.
type captureFragment struct {
	Text  string
	Final bool
}

// captureEnded signals the capture source closed its stream.
type captureEnded struct{}

// questionsLoaded is the question source result that ends Loading.
type questionsLoaded struct {
	Questions []string
	Err       error
}

// ratingDone is the rater result for one submitted answer.
type ratingDone struct {
	Index  int
	Answer string
	Rating domain.Rating
	Err    error
}

// finalized carries the summary feedback that ends Submitting for the
// last question. Persistence has already been attempted by then.
type finalized struct {
	Feedback string
}

func (intentStartCapture) isEvent()    {}
func (intentStopCapture) isEvent()     {}
func (intentResetTranscript) isEvent() {}
func (intentEdit) isEvent()            {}
func (intentSubmit) isEvent()          {}
func (captureFragment) isEvent()       {}
func (captureEnded) isEvent()          {}
func (questionsLoaded) isEvent()       {}
func (ratingDone) isEvent()            {}
func (finalized) isEvent()             {}
