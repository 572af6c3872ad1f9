package app

// DefaultQuestionSeconds is the per-question answer budget.
const DefaultQuestionSeconds = 120

// countdown is the per-question wall-clock budget. The session's event
// loop drives it with one tick per second while a question is active.
type countdown struct {
	budget    int
	remaining int
}

func newCountdown(budget int) countdown {
	if budget <= 0 {
		budget = DefaultQuestionSeconds
	}
	return countdown{budget: budget, remaining: budget}
}

// reset restores the full budget; called on every question change.
func (c *countdown) reset() {
	c.remaining = c.budget
}

// tick consumes one second and reports whether the budget expired on
// this tick. Ticks at zero are inert, so a countdown expires at most
// once per question.
func (c *countdown) tick() bool {
	if c.remaining <= 0 {
		return false
	}
	c.remaining--
	return c.remaining == 0
}
