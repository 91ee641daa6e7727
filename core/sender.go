package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/Dyastin-0/lanmsg/logger"
	"github.com/google/uuid"
)

var ErrSizeMismatch = errors.New("file size changed during transfer")

// TransferError is what SendMessage and SendFile return on failure.
type TransferError struct {
	Op    string
	Addr  string
	File  string
	Bytes int64
	Err   error
}

func (e *TransferError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s %s to %s failed after %d bytes: %v", e.Op, e.File, e.Addr, e.Bytes, e.Err)
	}
	return fmt.Sprintf("%s to %s failed: %v", e.Op, e.Addr, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Sender pushes frames to peers. Every call dials a fresh connection and
// runs on the caller's goroutine.
type Sender struct {
	cfg    Config
	emit   func(Event)
	log    logger.Logger
	dialer net.Dialer
}

func NewSender(cfg Config, emit func(Event), log logger.Logger) *Sender {
	cfg = cfg.withDefaults()
	if emit == nil {
		emit = func(Event) {}
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Sender{
		cfg:    cfg,
		emit:   emit,
		log:    log.WithStr("component", "sender"),
		dialer: net.Dialer{Timeout: cfg.DialTimeout},
	}
}

func (s *Sender) header(h *Header) *Header {
	if s.cfg.VersionedHeaders {
		h.Version = Version
	}
	return h
}

func (s *Sender) dial(ctx context.Context, addr string) (net.Conn, error) {
	conn, err := s.dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(s.cfg.TransferPort)))
	if err != nil {
		return nil, err
	}

	// unblock writes when ctx is cancelled mid transfer
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	return &ctxConn{Conn: withDeadline(conn, s.cfg.IOTimeout), stop: stop}, nil
}

func (s *Sender) SendMessage(ctx context.Context, addr, text string) error {
	conn, err := s.dial(ctx, addr)
	if err != nil {
		return &TransferError{Op: "message", Addr: addr, Err: err}
	}
	defer conn.Close()

	w := bufio.NewWriter(conn)
	if err := WriteHeader(w, s.header(NewMessageHeader(text))); err != nil {
		return &TransferError{Op: "message", Addr: addr, Err: err}
	}
	if err := w.Flush(); err != nil {
		return &TransferError{Op: "message", Addr: addr, Err: err}
	}

	return nil
}

// SendFile streams the file at path to addr, reporting progress after
// every chunk and a final 100 once everything is written.
func (s *Sender) SendFile(ctx context.Context, addr, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return &TransferError{Op: "file", Addr: addr, File: path, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return &TransferError{Op: "file", Addr: addr, File: path, Err: err}
	}
	if info.IsDir() {
		return &TransferError{Op: "file", Addr: addr, File: path, Err: fmt.Errorf("%w: %s is a directory", ErrInvalidFileName, path)}
	}

	name, size := info.Name(), info.Size()
	t := newTracker(uuid.NewString(), name, Outbound, size, s.emit)

	fail := func(err error) error {
		t.failed(err)
		return &TransferError{Op: "file", Addr: addr, File: name, Bytes: t.done, Err: err}
	}

	conn, err := s.dial(ctx, addr)
	if err != nil {
		return fail(err)
	}
	defer conn.Close()

	if err := WriteHeader(conn, s.header(NewFileHeader(name, size))); err != nil {
		return fail(err)
	}

	buf := make([]byte, s.cfg.ChunkSize)
	for t.done < size {
		n, err := file.Read(buf[:min(int64(len(buf)), size-t.done)])
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return fail(werr)
			}
			t.add(n)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fail(err)
		}
	}

	if t.done != size {
		return fail(fmt.Errorf("%w: sent %d of %d bytes", ErrSizeMismatch, t.done, size))
	}

	t.report(100)

	s.log.WithStr("to", addr).WithStr("file", name).WithAny("bytes", size).Info("file sent")
	return nil
}

type ctxConn struct {
	net.Conn
	stop func() bool
}

func (c *ctxConn) Close() error {
	c.stop()
	return c.Conn.Close()
}
