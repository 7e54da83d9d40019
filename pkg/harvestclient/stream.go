package harvestclient

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// StreamReader incrementally parses server-sent events off a reader. It
// tolerates fragmented reads (bufio reassembles lines) and blank keep-alive
// lines between events.
type StreamReader struct {
	r *bufio.Reader

	kind string
	data bytes.Buffer

	// err is a read error held back so the event parsed in the same read is
	// delivered first; it surfaces on the following Next call.
	err error
}

// NewStreamReader wraps r for SSE parsing.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: bufio.NewReader(r)}
}

// Next returns the next complete event from the stream. It returns io.EOF
// once the stream ends; a trailing event without a closing blank line is
// still delivered before EOF.
func (s *StreamReader) Next() (kind string, data []byte, err error) {
	if s.err != nil {
		err := s.err
		s.err = nil
		return "", nil, err
	}

	for {
		line, err := s.r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if s.kind != "" || s.data.Len() > 0 {
				if err != nil && err != io.EOF {
					s.err = err
				}
				kind, data := s.flush()
				return kind, data, nil
			}
			if err != nil {
				return "", nil, err
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			s.kind = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if s.data.Len() > 0 {
				s.data.WriteByte('\n')
			}
			s.data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			// comment line, ignored
		}

		if err != nil {
			if s.kind != "" || s.data.Len() > 0 {
				if err != io.EOF {
					s.err = err
				}
				kind, data := s.flush()
				return kind, data, nil
			}
			return "", nil, err
		}
	}
}

func (s *StreamReader) flush() (string, []byte) {
	kind := s.kind
	data := make([]byte, s.data.Len())
	copy(data, s.data.Bytes())
	s.kind = ""
	s.data.Reset()
	return kind, data
}
