package app

import (
	"strings"

	"skill-assessment-service/internal/domain"
)

// capture manages the answer buffer for the active question: committed
// transcription fragments, the current interim fragment, and manual
// edits all feed the same buffer.
//
// It is owned by the session's event loop and never accessed
// concurrently.
type capture struct {
	supported bool
	running   bool
	committed string
	interim   string
}

func newCapture(supported bool) *capture {
	return &capture{supported: supported}
}

// start begins transcription. Starting an unsupported capture returns
// ErrCaptureUnsupported so callers can fall back to manual typing;
// starting a running capture is a no-op.
func (c *capture) start() error {
	if !c.supported {
		return domain.ErrCaptureUnsupported
	}
	if c.running {
		return nil
	}
	// Preserve any typed text before the engine takes over.
	c.running = true
	c.interim = ""
	return nil
}

// stop ends transcription. Committed fragments are retained; an interim
// fragment that never finalized is discarded.
func (c *capture) stop() {
	if !c.running {
		return
	}
	c.running = false
	c.interim = ""
}

// reset clears the whole buffer for the current question.
func (c *capture) reset() {
	c.committed = ""
	c.interim = ""
}

// edit overwrites the buffer with manually typed text. The most recent
// actor wins, so a pending interim fragment is dropped.
func (c *capture) edit(text string) {
	c.committed = text
	c.interim = ""
}

// fragment applies a transcription result. Final fragments append to the
// committed buffer; interim fragments replace the previous interim one.
// Fragments arriving while capture is stopped are stale and ignored.
func (c *capture) fragment(text string, final bool) {
	if !c.running {
		return
	}
	if final {
		if c.committed != "" && !strings.HasSuffix(c.committed, " ") {
			c.committed += " "
		}
		c.committed += text
		c.interim = ""
		return
	}
	c.interim = text
}

// text returns the buffer the state machine consumes at submit time:
// committed fragments plus the current interim fragment.
func (c *capture) text() string {
	if c.interim == "" {
		return c.committed
	}
	if c.committed == "" {
		return c.interim
	}
	sep := " "
	if strings.HasSuffix(c.committed, " ") {
		sep = ""
	}
	return c.committed + sep + c.interim
}
