package domain

// State identifies the phase of an assessment session.
type State string

const (
	// StateLoading means the question set is still being fetched.
	StateLoading State = "loading"
	// StateInProgress means a question is active: the countdown runs and
	// the answer buffer accepts capture fragments and edits.
	StateInProgress State = "in_progress"
	// StateSubmitting means an answer is being rated (or the final
	// summary is being produced); the countdown is paused.
	StateSubmitting State = "submitting"
	// StateComplete is terminal: all answers rated, verdict fixed.
	StateComplete State = "complete"
	// StateFailed is terminal: the session could not be set up.
	StateFailed State = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Rating is the assessor's verdict for one answer.
type Rating struct {
	Score      int    `json:"score"` // 0-10
	Suggestion string `json:"suggestion"`
}

// Skill is a record from the user's profile that an assessment verifies.
type Skill struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

// QuestionReview pairs a question with the answer given and its rating,
// for the summary breakdown.
type QuestionReview struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Score      int    `json:"score"`
	Suggestion string `json:"suggestion"`
}

// Result is the fixed outcome of a completed session.
type Result struct {
	TotalScore    int              `json:"totalScore"`
	MaxScore      int              `json:"maxScore"`
	Passed        bool             `json:"passed"`
	FinalFeedback string           `json:"finalFeedback"`
	Review        []QuestionReview `json:"review"`
}

// SessionSnapshot is an immutable view of a session, published to
// subscribers after every state change.
type SessionSnapshot struct {
	SessionID        string `json:"sessionId"`
	SkillName        string `json:"skillName"`
	State            State  `json:"state"`
	QuestionIndex    int    `json:"questionIndex"`
	QuestionCount    int    `json:"questionCount"`
	Question         string `json:"question,omitempty"`
	RemainingSeconds int    `json:"remainingSeconds"`
	Transcript       string `json:"transcript"`
	CaptureSupported bool   `json:"captureSupported"`
	CaptureRunning   bool   `json:"captureRunning"`

	// Notice carries a transient, non-fatal message (rating failure,
	// capture unsupported). It does not imply a state change.
	Notice string `json:"notice,omitempty"`

	// Error is set only in the failed state.
	Error string `json:"error,omitempty"`

	// Result is set only in the complete state.
	Result *Result `json:"result,omitempty"`
}

// NoAnswer is recorded when a question times out or is submitted with an
// empty transcript.
const NoAnswer = "No answer provided."

// QuestionErrorSentinel prefixes the single question returned by a
// question source that failed internally instead of erroring outright.
const QuestionErrorSentinel = "Error"
