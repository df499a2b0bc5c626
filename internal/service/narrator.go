package service

import (
	"strings"

	"github.com/liliang-cn/gmassist/internal/domain"
)

// Delimiters the model uses to mark a narration block.
const (
	NarrationOpen  = "[NARRATION]"
	NarrationClose = "[/NARRATION]"

	// DefaultSceneName labels narration blocks when no scene was detected.
	DefaultSceneName = "Narration"
)

type narratorState int

const (
	statePlain narratorState = iota
	stateNarrating
)

// Narrator demultiplexes an LLM text stream into plain content and
// narration blocks. One Narrator serves one turn; it is not safe for
// concurrent use.
//
// In the plain state text is released as soon as it cannot be the start of
// an open delimiter. A plain segment that so far holds only whitespace is
// kept back, and dropped if an open delimiter ends it. In the narrating
// state text is held until the close delimiter, then released as one script
// event. buf only ever holds the unresolved tail since the last boundary.
type Narrator struct {
	sceneName string
	maxBlock  int

	state   narratorState
	buf     string
	hasText bool // current plain segment has released non-whitespace text
	scanned int  // prefix of buf already searched for the close delimiter
}

// NewNarrator creates a narrator. maxBlockBytes bounds the body of a
// narration block; a longer block is passed through as plain text. Zero
// means unbounded.
func NewNarrator(sceneName string, maxBlockBytes int) *Narrator {
	if sceneName == "" {
		sceneName = DefaultSceneName
	}
	return &Narrator{sceneName: sceneName, maxBlock: maxBlockBytes}
}

// Feed consumes one delta and returns the events it completes, in order.
func (n *Narrator) Feed(delta string) []domain.StreamEvent {
	if delta == "" {
		return nil
	}
	n.buf += delta

	var out []domain.StreamEvent
	for {
		switch n.state {
		case statePlain:
			if i := strings.Index(n.buf, NarrationOpen); i >= 0 {
				if before := n.buf[:i]; n.releasable(before) {
					out = append(out, domain.ContentEvent(before))
				}
				n.buf = n.buf[i+len(NarrationOpen):]
				n.state = stateNarrating
				n.scanned = 0
				n.hasText = false
				continue
			}

			ready := n.buf[:len(n.buf)-partialSuffix(n.buf, NarrationOpen)]
			if n.releasable(ready) {
				out = append(out, domain.ContentEvent(ready))
				n.hasText = true
				n.buf = n.buf[len(ready):]
			}
			return out

		case stateNarrating:
			if i := strings.Index(n.buf[n.scanned:], NarrationClose); i >= 0 {
				i += n.scanned
				if n.oversized(i) {
					out = append(out, n.degrade())
					continue
				}
				out = append(out, domain.ScriptEvent(strings.TrimSpace(n.buf[:i]), n.sceneName))
				n.buf = n.buf[i+len(NarrationClose):]
				n.state = statePlain
				n.hasText = false
				continue
			}

			// the earliest a close could still start
			if n.oversized(len(n.buf) - partialSuffix(n.buf, NarrationClose)) {
				out = append(out, n.degrade())
				continue
			}

			n.scanned = max(0, len(n.buf)-len(NarrationClose)+1)
			return out
		}
	}
}

func (n *Narrator) oversized(blockLen int) bool {
	return n.maxBlock > 0 && blockLen > n.maxBlock
}

// degrade gives up on a runaway block. The open delimiter is released as
// text and the block body is scanned again as plain text, so a later close
// delimiter also comes through verbatim.
func (n *Narrator) degrade() domain.StreamEvent {
	n.state = statePlain
	n.hasText = true
	n.scanned = 0
	return domain.ContentEvent(NarrationOpen)
}

// Flush ends the turn. Leftover plain text and any unterminated narration
// block are returned as content so nothing is lost.
func (n *Narrator) Flush() []domain.StreamEvent {
	rest := n.buf
	n.buf = ""
	n.state = statePlain
	n.hasText = false
	n.scanned = 0

	if rest == "" {
		return nil
	}
	return []domain.StreamEvent{domain.ContentEvent(rest)}
}

func (n *Narrator) releasable(text string) bool {
	if text == "" {
		return false
	}
	return n.hasText || strings.TrimSpace(text) != ""
}

// partialSuffix returns the length of the longest suffix of s that is a
// proper prefix of delim.
func partialSuffix(s, delim string) int {
	k := min(len(delim)-1, len(s))
	for ; k > 0; k-- {
		if strings.HasSuffix(s, delim[:k]) {
			return k
		}
	}
	return 0
}

// NarrationResult is a complete reply split into its plain text and narration blocks.
type NarrationResult struct {
	Response   string
	Narrations []string
}

// ParseNarration runs the narrator once over a complete reply.
func ParseNarration(text, sceneName string) NarrationResult {
	n := NewNarrator(sceneName, 0)
	events := append(n.Feed(text), n.Flush()...)

	var result NarrationResult
	var plain strings.Builder
	for _, ev := range events {
		switch ev.Kind {
		case domain.EventContent:
			plain.WriteString(ev.Content)
		case domain.EventScript:
			result.Narrations = append(result.Narrations, ev.Script)
		}
	}
	result.Response = strings.TrimSpace(plain.String())
	return result
}
