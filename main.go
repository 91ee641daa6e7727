package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dyastin-0/lanmsg/cmd"
	"github.com/Dyastin-0/lanmsg/styles"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.New().Run(ctx, os.Args); err != nil {
		fmt.Println(styles.ERROR.Render(err.Error()))
		stop()
		os.Exit(1)
	}
}
