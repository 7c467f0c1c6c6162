package advisor

import (
	"bufio"
	"bytes"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const lineBuffer = 256

// session owns one running agent process: its stdin and a channel of stdout
// lines. The standard streams are never touched from more than one goroutine.
type session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	exited chan struct{}
	stderr *lockedBuffer
	logger *zap.Logger

	closeOnce sync.Once
	killGrace time.Duration
}

// lockedBuffer guards stderr writes from the child against reads after exit.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startSession launches the agent process with piped stdio and begins
// feeding stdout lines into the session's channel.
func startSession(argv []string, killGrace time.Duration, logger *zap.Logger) (*session, error) {
	cmd := exec.Command(argv[0], argv[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "open agent stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "open agent stdout")
	}

	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start agent process %q", strings.Join(argv, " "))
	}

	s := &session{
		cmd:       cmd,
		stdin:     stdin,
		lines:     make(chan string, lineBuffer),
		exited:    make(chan struct{}),
		stderr:    stderr,
		logger:    logger,
		killGrace: killGrace,
	}

	go s.readLines(stdout)

	return s, nil
}

// readLines pumps stdout lines into the channel until EOF, then reaps the
// process. Closing the lines channel is the exit signal for readers.
func (s *session) readLines(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.lines <- scanner.Text()
	}
	close(s.lines)

	s.cmd.Wait()
	close(s.exited)
}

// writeLine sends one line to the agent's stdin.
func (s *session) writeLine(line string) error {
	if _, err := io.WriteString(s.stdin, line+"\n"); err != nil {
		return errors.Wrap(err, "write to agent stdin")
	}
	return nil
}

// stderrTail returns captured stderr for error messages, bounded so a noisy
// agent cannot flood logs.
func (s *session) stderrTail() string {
	out := s.stderr.String()
	const max = 2048
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return strings.TrimSpace(out)
}

// close tears the session down: a polite exit command, then SIGTERM, then
// SIGKILL after the grace period. Safe to call multiple times and on an
// already-exited process; teardown problems are logged, never returned.
func (s *session) close() {
	s.closeOnce.Do(func() {
		// drain remaining output so the reader goroutine can reach EOF
		go func() {
			for range s.lines {
			}
		}()

		// polite exit; the process may already be gone
		if err := s.writeLine("exit"); err != nil {
			s.logger.Debug("exit command not delivered", zap.Error(err))
		}
		s.stdin.Close()

		select {
		case <-s.exited:
			return
		default:
		}

		if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			s.logger.Debug("terminate signal not delivered", zap.Error(err))
		}

		select {
		case <-s.exited:
		case <-time.After(s.killGrace):
			s.logger.Warn("agent process did not terminate, killing it")
			if err := s.cmd.Process.Kill(); err != nil {
				s.logger.Warn("failed to kill agent process", zap.Error(err))
			}
			<-s.exited
		}
	})
}
