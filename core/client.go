package core

import (
	"context"
	"net"
	"sync"

	"github.com/Dyastin-0/lanmsg/logger"
	"github.com/Dyastin-0/lanmsg/peers"
)

// Client is everything a shell needs: discovery, the transfer server,
// outbound sends, and one channel carrying every notification.
type Client struct {
	cfg         Config
	log         logger.Logger
	bus         *bus
	registry    *peers.Registry
	broadcaster *Broadcaster
	server      *Server
	sender      *Sender

	closeOnce sync.Once
}

func NewClient(cfg Config, log logger.Logger) *Client {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.Nop()
	}

	b := newBus(cfg.EventBuffer)
	registry := peers.New()

	return &Client{
		cfg:         cfg,
		log:         log,
		bus:         b,
		registry:    registry,
		broadcaster: NewBroadcaster(cfg, registry, b.emit, log),
		server:      NewServer(cfg, b.emit, log),
		sender:      NewSender(cfg, b.emit, log),
	}
}

// Start begins discovery: it binds the discovery socket, runs the receive
// loop in the background and announces once.
func (c *Client) Start(ctx context.Context) error {
	return c.broadcaster.Start(ctx)
}

func (c *Client) BroadcastPresence() error {
	return c.broadcaster.BroadcastPresence()
}

// StartServer binds the transfer port and accepts in the background.
func (c *Client) StartServer(ctx context.Context) error {
	return c.server.Listen(ctx)
}

// Run re-announces and evicts stale peers on a ticker until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	return c.broadcaster.Run(ctx)
}

func (c *Client) SendMessage(ctx context.Context, addr, text string) error {
	return c.sender.SendMessage(ctx, addr, text)
}

func (c *Client) SendFile(ctx context.Context, addr, path string) error {
	return c.sender.SendFile(ctx, addr, path)
}

// Events is the single stream of notifications. It must be drained, or
// the discovery and transfer goroutines stall once it is full.
func (c *Client) Events() <-chan Event {
	return c.bus.ch
}

func (c *Client) Peers() []peers.Peer {
	return c.registry.Peers()
}

func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) DiscoveryAddr() net.Addr {
	return c.broadcaster.LocalAddr()
}

func (c *Client) TransferAddr() net.Addr {
	return c.server.Addr()
}

// Close stops both listeners and releases anything blocked on Events.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.bus.close()
		if berr := c.broadcaster.Close(); berr != nil {
			err = berr
		}
		if serr := c.server.Close(); serr != nil && err == nil {
			err = serr
		}
	})
	return err
}
