package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/Dyastin-0/lanmsg/logger"
	"github.com/Dyastin-0/lanmsg/peers"
	"golang.org/x/net/ipv4"
)

var ErrNotStarted = errors.New("not started")

// Broadcaster owns the discovery socket: it announces this host and turns
// announcements from others into registry entries and PeerFound events.
type Broadcaster struct {
	cfg      Config
	registry *peers.Registry
	emit     func(Event)
	log      logger.Logger
	hello    EncodedPresence

	mu   sync.Mutex
	conn *net.UDPConn
	pc   *ipv4.PacketConn
}

func NewBroadcaster(cfg Config, registry *peers.Registry, emit func(Event), log logger.Logger) *Broadcaster {
	cfg = cfg.withDefaults()
	if registry == nil {
		registry = peers.New()
	}
	if emit == nil {
		emit = func(Event) {}
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Broadcaster{
		cfg:      cfg,
		registry: registry,
		emit:     emit,
		log:      log.WithStr("component", "presence"),
		hello:    NewPresence(cfg.Hostname),
	}
}

func (b *Broadcaster) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return nil
	}

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var serr error
			err := c.Control(func(fd uintptr) {
				serr = setSocketOpts(fd)
			})
			if err != nil {
				return err
			}
			return serr
		},
	}

	ln, err := lc.ListenPacket(ctx, "udp4", b.cfg.DiscoveryAddr)
	if err != nil {
		return fmt.Errorf("failed to bind discovery socket: %w", err)
	}

	conn, ok := ln.(*net.UDPConn)
	if !ok {
		ln.Close()
		return fmt.Errorf("unexpected packet conn %T", ln)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv4.FlagInterface, true); err != nil {
		b.log.WithErr(err).Debug("interface control messages unavailable")
	}

	b.conn = conn
	b.pc = pc
	return nil
}

// Start binds the socket, starts the receive loop and announces once.
func (b *Broadcaster) Start(ctx context.Context) error {
	if err := b.Init(ctx); err != nil {
		return err
	}

	go b.listen(ctx)

	if err := b.BroadcastPresence(); err != nil {
		b.log.WithErr(err).Warn("initial presence broadcast failed")
	}

	return nil
}

// BroadcastPresence sends one announcement. There is no ack and no retry.
func (b *Broadcaster) BroadcastPresence() error {
	b.mu.Lock()
	pc := b.pc
	b.mu.Unlock()

	if pc == nil {
		return ErrNotStarted
	}

	dst, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(b.cfg.BroadcastAddr, strconv.Itoa(b.cfg.DiscoveryPort)))
	if err != nil {
		return err
	}

	_, err = pc.WriteTo(b.hello, nil, dst)
	return err
}

func (b *Broadcaster) LocalAddr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil
	}
	return b.conn.LocalAddr()
}

func (b *Broadcaster) Registry() *peers.Registry {
	return b.registry
}

func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn, b.pc = nil, nil
	return err
}

func (b *Broadcaster) listen(ctx context.Context) {
	b.mu.Lock()
	pc := b.pc
	b.mu.Unlock()

	if pc == nil {
		return
	}

	stop := context.AfterFunc(ctx, func() { b.Close() })
	defer stop()

	buf := make([]byte, 2048)
	for {
		n, cm, src, err := pc.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			b.log.WithErr(err).Warn("discovery read failed")
			continue
		}

		addr, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}

		ifindex := 0
		if cm != nil {
			ifindex = cm.IfIndex
		}

		b.handle(EncodedPresence(buf[:n]), addr, ifindex)
	}
}

func (b *Broadcaster) handle(msg EncodedPresence, src *net.UDPAddr, ifindex int) {
	name, err := msg.Parse()
	if err != nil {
		b.log.WithStr("from", src.String()).WithInt("bytes", len(msg)).Debug("discarded datagram")
		return
	}

	if b.cfg.IgnoreSelf && name == b.cfg.Hostname {
		return
	}

	id := peers.Identity{Name: name, Addr: src.IP.String()}
	isNew := b.registry.Touch(id)

	if isNew {
		b.log.WithStr("peer", id.String()).WithInt("ifindex", ifindex).Info("peer found")
	}

	b.emit(PeerFound{
		Peer:       id,
		Descriptor: id.String(),
		New:        isNew,
	})
}

// Sweep evicts peers silent for longer than the peer timeout and emits
// PeerLost for each of them.
func (b *Broadcaster) Sweep(now time.Time) []peers.Identity {
	evicted := b.registry.Sweep(now, b.cfg.PeerTimeout)
	for _, id := range evicted {
		b.log.WithStr("peer", id.String()).Info("peer lost")
		b.emit(PeerLost{Peer: id})
	}
	return evicted
}

// Run announces and sweeps every AnnounceInterval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.AnnounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := b.BroadcastPresence(); err != nil {
				b.log.WithErr(err).Warn("presence broadcast failed")
			}
			b.Sweep(now)
		}
	}
}
