package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Dyastin-0/lanmsg/core"
	"github.com/Dyastin-0/lanmsg/progress"
	"github.com/Dyastin-0/lanmsg/styles"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func listenCommand() *cli.Command {
	return &cli.Command{
		Name:   "listen",
		Usage:  "announce this machine and receive messages and files",
		Flags:  defaultFlags(),
		Action: listenAction,
	}
}

func listenAction(ctx context.Context, cmd *cli.Command) error {
	c, log, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return err
	}

	if err := c.StartServer(ctx); err != nil {
		return err
	}

	cfg := c.Config()
	fmt.Println(styles.TITLE.Render(fmt.Sprintf("%s is listening on %s, files go to %s", cfg.Hostname, c.TransferAddr(), cfg.ReceiveDir)))
	log.Debug("listening")

	bars := progress.New(os.Stdout)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(ctx) })
	g.Go(func() error { return render(ctx, c.Events(), bars) })

	err = g.Wait()
	bars.Reset()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func render(ctx context.Context, events <-chan core.Event, bars *progress.Progress) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e := <-events:
			switch e := e.(type) {
			case core.PeerFound:
				if e.New {
					fmt.Println(styles.SUCCESS.Render("+ " + e.Descriptor))
				}

			case core.PeerLost:
				fmt.Println(styles.INFO.Render("- " + e.Peer.String()))

			case core.MessageReceived:
				if path, ok := strings.CutPrefix(e.Text, core.FileReceivedPrefix); ok {
					fmt.Println(styles.SUCCESS.Render(fmt.Sprintf("chomped %s from %s", path, e.From)))
					continue
				}
				fmt.Println(styles.SENDER.Render(e.From+":") + e.Text)

			case core.FileProgress:
				if e.Direction == core.Inbound {
					bars.Update(e.ID, e.FileName, e.Percent)
				}

			case core.TransferFailed:
				bars.Abort(e.ID)
				fmt.Println(styles.ERROR.Render(fmt.Sprintf("%s failed after %d bytes: %v", e.FileName, e.Bytes, e.Err)))
			}
		}
	}
}
