// Package reasoning rewrites inline reasoning markers from a streamed
// chat completion into Markdown-fenced blocks, incrementally and
// without ever leaking a marker it cannot yet classify.
//
// DeepSeek-style models wrap their chain of thought in <think> and
// </think>. The opening marker becomes a fence header exactly once per
// response; a closing marker becomes a fence footer only when it is the
// last one in the whole stream, which requires lookahead over chunks
// that may not have arrived yet. The Transducer buffers just enough to
// decide, and a final Flush forces every remaining decision when the
// stream ends.
package reasoning

import "strings"

const (
	DefaultOpenMarker  = "<think>"
	DefaultCloseMarker = "</think>"
	DefaultLabel       = "Reasoning..."
)

// lookaheadWindow is how many chunks must arrive after a chunk
// containing a close marker before we commit to whether that marker is
// the last one in the stream. Bounding the window bounds added latency;
// upstream chunking never guarantees this is enough, so Flush remains
// the authority at stream end.
const lookaheadWindow = 5

// Transducer holds the per-response buffer and context for rewriting
// reasoning markers. Create one per streamed response with New; it is
// not safe for concurrent use and must not be shared across responses.
type Transducer struct {
	openMarker  string
	closeMarker string
	label       string

	fenceOpen  string
	fenceClose string
	// Proper suffixes of the close marker, longest first. A marker torn
	// apart by an earlier substring replacement can leave these behind.
	debris []string

	buf             []string
	firstOpenerSeen bool
}

// New returns a Transducer for the default <think>/</think> markers.
func New() *Transducer {
	t := &Transducer{
		openMarker:  DefaultOpenMarker,
		closeMarker: DefaultCloseMarker,
		label:       DefaultLabel,
	}
	t.rebuild()
	return t
}

// WithMarkers overrides the opening and closing marker literals.
func (t *Transducer) WithMarkers(openMarker, closeMarker string) *Transducer {
	t.openMarker = openMarker
	t.closeMarker = closeMarker
	t.rebuild()
	return t
}

// WithLabel overrides the label placed on the opening fence.
func (t *Transducer) WithLabel(label string) *Transducer {
	t.label = label
	t.rebuild()
	return t
}

func (t *Transducer) rebuild() {
	t.fenceOpen = "\n```" + t.label + "\n"
	t.fenceClose = "\n```\n"
	t.debris = t.debris[:0]
	// For "</think>" this yields "/think>", "think>", ... down to "k>".
	// The bare ">" is left alone.
	for i := 1; i <= len(t.closeMarker)-2; i++ {
		t.debris = append(t.debris, t.closeMarker[i:])
	}
}

// Buffered reports how many chunks are awaiting a decision.
func (t *Transducer) Buffered() int {
	return len(t.buf)
}

// Push appends one incoming chunk and returns every chunk that became
// finalizable, transformed, in arrival order. Chunks whose close-marker
// verdict is still indeterminate stay buffered, along with everything
// after them.
func (t *Transducer) Push(chunk string) []string {
	t.buf = append(t.buf, chunk)
	return t.tryFinalize()
}

func (t *Transducer) tryFinalize() []string {
	var out []string
	for len(t.buf) > 0 {
		chunk := t.buf[0]
		if strings.Contains(chunk, t.closeMarker) {
			if len(t.buf) <= lookaheadWindow {
				// Fewer than lookaheadWindow chunks follow: the verdict
				// is indeterminate, so this chunk and everything after
				// it stay buffered.
				break
			}
			t.buf = t.buf[1:]
			lastClose := true
			for _, next := range t.buf[:lookaheadWindow] {
				if strings.Contains(next, t.closeMarker) {
					lastClose = false
					break
				}
			}
			out = append(out, t.transform(chunk, lastClose))
			continue
		}
		t.buf = t.buf[1:]
		out = append(out, t.transform(chunk, false))
	}
	return out
}

// Flush drains the buffer at stream end, forcing a verdict for every
// remaining chunk. With no more chunks ever arriving the lookahead is
// fully determined: a close marker is final exactly when no buffered
// chunk after it contains another one. The driver calls Flush exactly
// once per response, on every exit path; a second call is a no-op.
func (t *Transducer) Flush() []string {
	var out []string
	for len(t.buf) > 0 {
		chunk := t.buf[0]
		t.buf = t.buf[1:]
		lastClose := true
		for _, next := range t.buf {
			if strings.Contains(next, t.closeMarker) {
				lastClose = false
				break
			}
		}
		out = append(out, t.transform(chunk, lastClose))
	}
	return out
}

// transform rewrites every marker occurrence in a single chunk. The
// first opening marker of the response becomes the opening fence and
// later ones are deleted; closing markers become the closing fence only
// when lastClose holds, and are deleted otherwise. Any leftover suffix
// of the close marker is stripped so no torn fragment reaches output.
// Text without markers passes through verbatim, and already-transformed
// text is left untouched.
func (t *Transducer) transform(chunk string, lastClose bool) string {
	for {
		idx := strings.Index(chunk, t.openMarker)
		if idx < 0 {
			break
		}
		if !t.firstOpenerSeen {
			chunk = chunk[:idx] + t.fenceOpen + chunk[idx+len(t.openMarker):]
			t.firstOpenerSeen = true
		} else {
			chunk = chunk[:idx] + chunk[idx+len(t.openMarker):]
		}
	}
	for {
		idx := strings.Index(chunk, t.closeMarker)
		if idx < 0 {
			break
		}
		if lastClose {
			chunk = chunk[:idx] + t.fenceClose + chunk[idx+len(t.closeMarker):]
		} else {
			chunk = chunk[:idx] + chunk[idx+len(t.closeMarker):]
		}
	}
	for _, fragment := range t.debris {
		chunk = strings.ReplaceAll(chunk, fragment, "")
	}
	return chunk
}
