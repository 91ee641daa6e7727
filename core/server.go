package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Dyastin-0/lanmsg/logger"
	"golang.org/x/sync/semaphore"
)

// Server accepts transfer connections and hands each one to its own
// goroutine. At most MaxConns handlers run at once; the accept loop waits
// for a free slot instead of refusing connections.
type Server struct {
	cfg      Config
	receiver *Receiver
	log      logger.Logger
	sem      *semaphore.Weighted

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

func NewServer(cfg Config, emit func(Event), log logger.Logger) *Server {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithStr("component", "transport")

	s := &Server{
		cfg:      cfg,
		receiver: NewReceiver(cfg.ReceiveDir, cfg.ChunkSize, emit, log),
		log:      log,
	}

	if cfg.MaxConns > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConns))
	}

	return s
}

// Listen binds the transfer port and returns once the accept loop runs.
func (s *Server) Listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.TransferAddr)
	if err != nil {
		return fmt.Errorf("failed to bind transfer socket: %w", err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.log.WithStr("addr", ln.Addr().String()).Info("listening")

	go s.accept(ctx, ln)
	return nil
}

func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Receiver() *Receiver {
	return s.receiver
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	s.ln = nil
	return err
}

// Wait blocks until every running handler has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) accept(ctx context.Context, ln net.Listener) {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	var backoff time.Duration
	for {
		if s.sem != nil {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			s.release()

			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}

			backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
			s.log.WithErr(err).WithAny("retry_in", backoff.String()).Warn("accept failed")
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.wg.Add(1)
		go func(conn net.Conn) {
			defer s.wg.Done()
			defer s.release()
			s.handleConn(conn)
		}(conn)
	}
}

func (s *Server) release() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	from := remoteIP(conn)
	rd := bufio.NewReaderSize(withDeadline(conn, s.cfg.IOTimeout), s.cfg.ChunkSize)

	if err := s.receiver.receive(rd, from); err != nil {
		s.log.WithStr("from", from).WithErr(err).Warn("connection aborted")
	}
}

func remoteIP(conn net.Conn) string {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return addr.IP.String()
	}

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
