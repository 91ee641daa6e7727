package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Dyastin-0/lanmsg/core"
	"github.com/Dyastin-0/lanmsg/progress"
	"github.com/Dyastin-0/lanmsg/selector"
	"github.com/Dyastin-0/lanmsg/styles"
	"github.com/charmbracelet/huh"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

var errNoPeers = errors.New("no peers found")

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "send a text message",
		ArgsUsage: "[message]",
		Flags:     peerFlags(),
		Action:    sendAction,
	}
}

func sendAction(ctx context.Context, cmd *cli.Command) error {
	c, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	addrs, err := targets(ctx, cmd, c)
	if err != nil {
		return err
	}

	text := strings.Join(cmd.Args().Slice(), " ")
	if text == "" {
		if text, err = promptMessage(); err != nil {
			return err
		}
	}

	var errs []error
	for _, to := range addrs {
		if err := c.SendMessage(ctx, to, text); err != nil {
			fmt.Println(styles.ERROR.Render(err.Error()))
			errs = append(errs, err)
			continue
		}
		fmt.Println(styles.SUCCESS.Render("sent to " + to))
	}

	return errors.Join(errs...)
}

func chuckCommand() *cli.Command {
	return &cli.Command{
		Name:      "chuck",
		Usage:     "send files",
		ArgsUsage: "[file...]",
		Flags:     peerFlags(),
		Action:    chuckAction,
	}
}

func chuckAction(ctx context.Context, cmd *cli.Command) error {
	c, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	addrs, err := targets(ctx, cmd, c)
	if err != nil {
		return err
	}

	files := cmd.Args().Slice()
	if len(files) == 0 {
		fs := selector.NewFiles(".")
		if err := fs.Run(); err != nil {
			return err
		}
		files = fs.Paths()
	}
	if len(files) == 0 {
		return errors.New("no files selected")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		outboundBars(ctx, c.Events())
	}()

	var failed int
	for _, to := range addrs {
		for _, path := range files {
			if err := c.SendFile(ctx, to, path); err != nil {
				failed++
				fmt.Println(styles.ERROR.Render(fmt.Sprintf("failed to chuck %s to %s: %v", filepath.Base(path), to, err)))
			}
		}
	}

	cancel()
	<-done

	total := len(files) * len(addrs)
	if failed > 0 {
		return fmt.Errorf("%d of %d transfers failed", failed, total)
	}

	fmt.Println(styles.SUCCESS.Render(fmt.Sprintf("chucked %d file(s) to %s", len(files), strings.Join(addrs, ", "))))
	return nil
}

// outboundBars draws one bar per outgoing file. Files go one at a time, so
// a new transfer ID means the previous one is over.
func outboundBars(ctx context.Context, events <-chan core.Event) {
	var (
		id  string
		bar *progressbar.ProgressBar
	)

	for {
		select {
		case <-ctx.Done():
			return

		case e := <-events:
			switch e := e.(type) {
			case core.FileProgress:
				if e.Direction != core.Outbound {
					continue
				}
				if e.ID != id {
					if bar != nil {
						bar.Exit()
					}
					id = e.ID
					bar = progress.DefaultBar(e.FileName)
				}
				bar.Set(e.Percent)

			case core.TransferFailed:
				if e.ID == id && bar != nil {
					bar.Exit()
					bar, id = nil, ""
				}
			}
		}
	}
}

// targets returns --to, or asks the user to pick from discovered peers.
func targets(ctx context.Context, cmd *cli.Command, c *core.Client) ([]string, error) {
	if to := cmd.String("to"); to != "" {
		return []string{to}, nil
	}

	found, err := discover(ctx, c, cmd.Duration("wait"))
	if err != nil {
		return nil, err
	}

	if len(found) == 0 {
		return nil, errNoPeers
	}

	ps := selector.NewPeers(c.Peers, c.Config().PeerTimeout)
	if err := ps.Run(); err != nil {
		return nil, err
	}

	var addrs []string
	for _, id := range ps.Selected() {
		if !slices.Contains(addrs, id.Addr) {
			addrs = append(addrs, id.Addr)
		}
	}

	if len(addrs) == 0 {
		return nil, errors.New("no peers selected")
	}

	return addrs, nil
}

func promptMessage() (string, error) {
	var text string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Message").
				Value(&text).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("message is empty")
					}
					return nil
				}),
		),
	)

	return text, form.Run()
}
