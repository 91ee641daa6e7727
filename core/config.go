package core

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

const (
	DiscoveryPort    = 5000
	TransferPort     = 2426
	BroadcastAddr    = "255.255.255.255"
	ReceiveDir       = "ReceivedFiles"
	ChunkSize        = 8192
	PeerTimeout      = 4 * time.Second
	AnnounceInterval = 3 * time.Second
	IOTimeout        = 30 * time.Second
	DialTimeout      = 5 * time.Second
	MaxConns         = 64
	EventBuffer      = 256
)

type Config struct {
	// Hostname is announced to peers, defaults to os.Hostname.
	Hostname string

	// DiscoveryAddr and TransferAddr are host:port bind addresses.
	DiscoveryAddr string
	TransferAddr  string

	// DiscoveryPort is where announcements are broadcast to,
	// TransferPort is where SendMessage and SendFile connect to.
	DiscoveryPort int
	TransferPort  int
	BroadcastAddr string

	ReceiveDir string
	ChunkSize  int

	PeerTimeout      time.Duration
	AnnounceInterval time.Duration

	// IOTimeout bounds every single read or write, zero disables it.
	IOTimeout   time.Duration
	DialTimeout time.Duration

	// MaxConns caps concurrent inbound handlers, zero means unbounded.
	MaxConns int

	EventBuffer int

	// IgnoreSelf drops announcements carrying the local hostname.
	IgnoreSelf bool

	// VersionedHeaders prefixes outgoing frame headers with "V1|".
	VersionedHeaders bool
}

func DefaultConfig() Config {
	return Config{
		Hostname:         hostname(),
		DiscoveryAddr:    fmt.Sprintf(":%d", DiscoveryPort),
		TransferAddr:     fmt.Sprintf(":%d", TransferPort),
		DiscoveryPort:    DiscoveryPort,
		TransferPort:     TransferPort,
		BroadcastAddr:    BroadcastAddr,
		ReceiveDir:       ReceiveDir,
		ChunkSize:        ChunkSize,
		PeerTimeout:      PeerTimeout,
		AnnounceInterval: AnnounceInterval,
		IOTimeout:        IOTimeout,
		DialTimeout:      DialTimeout,
		MaxConns:         MaxConns,
		EventBuffer:      EventBuffer,
		IgnoreSelf:       true,
	}
}

// withDefaults fills zero values so a partially built Config is usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()

	if c.Hostname == "" {
		c.Hostname = d.Hostname
	}
	if c.DiscoveryAddr == "" {
		c.DiscoveryAddr = d.DiscoveryAddr
	}
	if c.TransferAddr == "" {
		c.TransferAddr = d.TransferAddr
	}
	if c.DiscoveryPort == 0 {
		c.DiscoveryPort = d.DiscoveryPort
	}
	if c.TransferPort == 0 {
		c.TransferPort = d.TransferPort
	}
	if c.BroadcastAddr == "" {
		c.BroadcastAddr = d.BroadcastAddr
	}
	if c.ReceiveDir == "" {
		c.ReceiveDir = d.ReceiveDir
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.PeerTimeout <= 0 {
		c.PeerTimeout = d.PeerTimeout
	}
	if c.AnnounceInterval <= 0 {
		c.AnnounceInterval = d.AnnounceInterval
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}

	return c
}

func hostname() string {
	hn, err := os.Hostname()
	if err != nil {
		hn = fmt.Sprintf("%s-%s", "unknown", uuid.NewString())
	}
	return hn
}
