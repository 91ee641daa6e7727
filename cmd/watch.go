package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Dyastin-0/lanmsg/core"
	"github.com/Dyastin-0/lanmsg/styles"
	"github.com/Dyastin-0/lanmsg/watch"
	"github.com/urfave/cli/v3"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "send every file dropped into a directory",
		Flags: append(peerFlags(),
			&cli.StringFlag{
				Name:  "outbox",
				Usage: "directory to watch",
				Value: "Outbox",
			},
			&cli.DurationFlag{
				Name:  "settle",
				Usage: "how long a file must stay unchanged before it is sent",
				Value: watch.DefaultSettle,
			},
		),
		Action: watchAction,
	}
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	c, log, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	addrs, err := targets(ctx, cmd, c)
	if err != nil {
		return err
	}
	if len(addrs) != 1 {
		return fmt.Errorf("watch sends to exactly one peer, got %d", len(addrs))
	}
	to := addrs[0]

	// nothing renders progress here
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.Events():
			}
		}
	}()

	w := watch.New(cmd.String("outbox"), to, c, log)
	w.Settle = cmd.Duration("settle")
	w.OnSent = func(path string, err error) {
		if err != nil {
			fmt.Println(styles.ERROR.Render(fmt.Sprintf("failed to chuck %s: %v", filepath.Base(path), err)))
			return
		}
		fmt.Println(styles.SUCCESS.Render(fmt.Sprintf("chucked %s to %s", filepath.Base(path), to)))
	}

	fmt.Println(styles.TITLE.Render(fmt.Sprintf("watching %s, sending to %s", cmd.String("outbox"), to)))

	return w.Run(ctx)
}

var _ watch.FileSender = (*core.Client)(nil)
