// Package cmd is the lanmsg command line.
package cmd

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/Dyastin-0/lanmsg/core"
	"github.com/Dyastin-0/lanmsg/logger"
	"github.com/common-nighthawk/go-figure"
	"github.com/urfave/cli/v3"
)

const version = "1.0.0"

func New() *cli.Command {
	return &cli.Command{
		Name:    "lanmsg",
		Usage:   "chat and swap files with machines on the same LAN",
		Version: version,
		Action:  lanmsgAction,
		Commands: []*cli.Command{
			listenCommand(),
			peersCommand(),
			sendCommand(),
			chuckCommand(),
			watchCommand(),
		},
	}
}

func lanmsgAction(ctx context.Context, cmd *cli.Command) error {
	figure := figure.NewFigure("lanmsg", "", true)
	figure.Print()

	fmt.Println()

	return cli.ShowAppHelp(cmd)
}

func defaultFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "transfer bind address, its port is also the one dialed on peers",
			Value:   fmt.Sprintf(":%d", core.TransferPort),
		},
		&cli.StringFlag{
			Name:    "bAddr",
			Aliases: []string{"b"},
			Usage:   "discovery bind address, its port is also the one broadcast to",
			Value:   fmt.Sprintf(":%d", core.DiscoveryPort),
		},
		&cli.StringFlag{
			Name:  "broadcast",
			Usage: "announcement destination",
			Value: core.BroadcastAddr,
		},
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "where received files are written",
			Value:   core.ReceiveDir,
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "hostname announced to peers",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per read/write idle timeout",
			Value: core.IOTimeout,
		},
		&cli.IntFlag{
			Name:  "max-conns",
			Usage: "concurrent inbound connections",
			Value: core.MaxConns,
		},
		&cli.BoolFlag{
			Name:  "show-self",
			Usage: "list this machine when it hears its own announcement",
		},
		&cli.BoolFlag{
			Name:  "versioned",
			Usage: "prefix outgoing headers with the protocol version",
		},
		&cli.StringFlag{
			Name:  "log",
			Usage: "also write json logs to this file",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
		},
	}
}

func peerFlags() []cli.Flag {
	return append(defaultFlags(),
		&cli.StringFlag{
			Name:    "to",
			Aliases: []string{"t"},
			Usage:   "peer address, prompts with discovered peers when empty",
		},
		&cli.DurationFlag{
			Name:    "wait",
			Aliases: []string{"w"},
			Usage:   "how long to listen for announcements before prompting",
			Value:   core.PeerTimeout,
		},
	)
}

func config(cmd *cli.Command) (core.Config, error) {
	cfg := core.DefaultConfig()

	transferPort, err := portOf(cmd.String("addr"))
	if err != nil {
		return cfg, fmt.Errorf("--addr: %w", err)
	}

	discoveryPort, err := portOf(cmd.String("bAddr"))
	if err != nil {
		return cfg, fmt.Errorf("--bAddr: %w", err)
	}

	if name := cmd.String("name"); name != "" {
		cfg.Hostname = name
	}

	cfg.TransferAddr = cmd.String("addr")
	cfg.TransferPort = transferPort
	cfg.DiscoveryAddr = cmd.String("bAddr")
	cfg.DiscoveryPort = discoveryPort
	cfg.BroadcastAddr = cmd.String("broadcast")
	cfg.ReceiveDir = cmd.String("dir")
	cfg.IOTimeout = cmd.Duration("timeout")
	cfg.MaxConns = int(cmd.Int("max-conns"))
	cfg.IgnoreSelf = !cmd.Bool("show-self")
	cfg.VersionedHeaders = cmd.Bool("versioned")

	return cfg, nil
}

func newLogger(cmd *cli.Command) logger.Logger {
	log := logger.New()

	if path := cmd.String("log"); path != "" {
		log.InitMultiWriter(path)
		return log
	}

	log.InitConsole(cmd.Bool("verbose"))
	return log
}

func newClient(cmd *cli.Command) (*core.Client, logger.Logger, error) {
	cfg, err := config(cmd)
	if err != nil {
		return nil, nil, err
	}

	log := newLogger(cmd).WithStr("host", cfg.Hostname)
	return core.NewClient(cfg, log), log, nil
}

func portOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}

	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", p)
	}

	return port, nil
}
