package pose

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	log "github.com/sirupsen/logrus"
)

// CommandSource reads frames from an external pose estimator that writes one
// JSON landmark frame per line on stdout, e.g. a MediaPipe script. The process
// is started on the first call to Next and killed by Close.
type CommandSource struct {
	name string
	args []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stderr  io.WriteCloser
	started bool
	closed  bool
	results chan frameResult
	stop    chan struct{}
	done    chan struct{}
}

type frameResult struct {
	frame Frame
	err   error
}

// NewCommandSource creates a CommandSource running name with args.
func NewCommandSource(name string, args ...string) *CommandSource {
	return &CommandSource{name: name, args: args}
}

// Next returns the next frame printed by the process. Malformed lines yield an
// error without stopping the source. io.EOF is returned once the process
// closes its output.
func (s *CommandSource) Next(ctx context.Context) (Frame, error) {
	results, err := s.ensureStarted()
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-results:
		if !ok {
			return nil, io.EOF
		}
		return r.frame, r.err
	}
}

func (s *CommandSource) ensureStarted() (<-chan frameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("command source closed")
	}
	if s.started {
		return s.results, nil
	}

	cmd := exec.Command(s.name, s.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	stderr := log.WithField("source", s.name).WriterLevel(log.WarnLevel)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		stderr.Close()
		return nil, fmt.Errorf("start pose estimator: %w", err)
	}

	s.cmd = cmd
	s.stderr = stderr
	s.results = make(chan frameResult)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.started = true

	go s.read(stdout)

	log.WithField("command", s.name).Info("pose estimator started")
	return s.results, nil
}

func (s *CommandSource) read(stdout io.Reader) {
	defer close(s.done)
	defer close(s.results)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var r frameResult
		r.frame, r.err = ParseFrame(data)
		if r.err != nil {
			r.err = fmt.Errorf("line %d: %w", line, r.err)
		}

		select {
		case s.results <- r:
		case <-s.stop:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case s.results <- frameResult{err: fmt.Errorf("read pose estimator: %w", err)}:
		case <-s.stop:
		}
	}
}

// Close kills the process and waits for it to exit.
func (s *CommandSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if !s.started {
		return nil
	}

	close(s.stop)
	if s.cmd.ProcessState == nil {
		_ = s.cmd.Process.Kill()
	}
	<-s.done

	err := s.cmd.Wait()
	s.stderr.Close()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Killed or exited on its own; either way the source is done.
		return nil
	}
	return err
}
