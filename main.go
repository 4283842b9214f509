package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dianpeng/awkframe/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR %s\n", err)
		stop()
		os.Exit(1)
	}
}
