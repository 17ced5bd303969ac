package pose

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
)

// Source defines the interface for frame producers such as a live pose
// estimator or a recorded session.
type Source interface {
	// Next returns the next frame. It returns io.EOF when the source is exhausted.
	Next(ctx context.Context) (Frame, error)

	// Close releases any resources held by the source.
	Close() error
}

// maxLineSize bounds a single JSON Lines record.
const maxLineSize = 1 << 20

// ReplaySource reads frames recorded as JSON Lines, one frame per line.
type ReplaySource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// NewReplaySource creates a ReplaySource over r. If r is an io.Closer it is
// closed by Close.
func NewReplaySource(r io.Reader) *ReplaySource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	s := &ReplaySource{scanner: scanner}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Next decodes the next non-blank line. A malformed line yields an error but
// does not stop the source; the following call continues with the next line.
func (s *ReplaySource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("failed to read replay: %w", err)
			}
			return nil, io.EOF
		}
		s.line++

		data := bytes.TrimSpace(s.scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		frame, err := ParseFrame(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		return frame, nil
	}
}

// Close closes the underlying reader when it supports closing.
func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
