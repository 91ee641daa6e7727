package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Dyastin-0/lanmsg/core"
	"github.com/Dyastin-0/lanmsg/peers"
	"github.com/Dyastin-0/lanmsg/styles"
	"github.com/charmbracelet/huh/spinner"
	"github.com/urfave/cli/v3"
)

func peersCommand() *cli.Command {
	return &cli.Command{
		Name:  "peers",
		Usage: "list machines announcing themselves",
		Flags: append(defaultFlags(),
			&cli.DurationFlag{
				Name:    "wait",
				Aliases: []string{"w"},
				Value:   core.PeerTimeout,
			},
		),
		Action: peersAction,
	}
}

func peersAction(ctx context.Context, cmd *cli.Command) error {
	c, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	found, err := discover(ctx, c, cmd.Duration("wait"))
	if err != nil {
		return err
	}

	if len(found) == 0 {
		fmt.Println(styles.INFO.Render("no peers found"))
		return nil
	}

	for _, p := range found {
		fmt.Printf("%s %s\n", styles.SUCCESS.Render(p.Identity.String()), styles.INFO.Render("seen "+time.Since(p.LastSeen).Round(time.Second).String()+" ago"))
	}

	return nil
}

// discover starts discovery on c and collects peers for wait. Events are
// drained here since nothing else reads them.
func discover(ctx context.Context, c *core.Client, wait time.Duration) ([]peers.Peer, error) {
	if err := c.Start(ctx); err != nil {
		return nil, err
	}

	err := spinner.New().Title(styles.INFO.Render("looking for peers...")).ActionWithErr(
		func(ctx context.Context) error {
			timer := time.NewTimer(wait)
			defer timer.Stop()

			for {
				select {
				case <-c.Events():
				case <-timer.C:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		},
	).Context(ctx).Run()
	if err != nil {
		return nil, err
	}

	return c.Peers(), nil
}
