// Package stream implements the two live SSE translators (C7): A→O,
// which re-emits an Anthropic-style event stream as OpenAI-style
// chat.completion.chunk frames, and O→A, which does the inverse while
// reconstructing Anthropic's content-block lifecycle.
package stream

import (
	"io"
	"strings"
)

// scanFrames reads byte fragments from r, reassembles them across reads,
// and invokes onFrame once for each complete SSE frame (text preceding a
// "\n\n" delimiter) in arrival order. A partial frame left in the buffer
// when r is exhausted is discarded, matching an upstream that closes
// mid-frame. Returns the first non-EOF read error, if any.
func scanFrames(r io.Reader, onFrame func(frame string) error) error {
	buf := make([]byte, 4096)
	var pending strings.Builder

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			pending.Write(buf[:n])
			if err := drainFrames(&pending, onFrame); err != nil {
				return err
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			return readErr
		}
	}
}

func drainFrames(pending *strings.Builder, onFrame func(frame string) error) error {
	rest := pending.String()
	for {
		idx := strings.Index(rest, "\n\n")
		if idx < 0 {
			break
		}
		frame := rest[:idx]
		rest = rest[idx+2:]
		if strings.TrimSpace(frame) == "" {
			continue
		}
		if err := onFrame(frame); err != nil {
			return err
		}
	}
	pending.Reset()
	pending.WriteString(rest)
	return nil
}

// dataLine extracts the payload of an SSE "data: ..." line. Lines of any
// other kind (event:, id:, blank) are reported as not-ok.
func dataLine(line string) (string, bool) {
	return strings.CutPrefix(line, "data: ")
}
