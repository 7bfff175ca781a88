// Command folio manages portfolios and writes the report data files read by
// the charting front end.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdout, os.Stderr)
	commander := a.commander(flag.CommandLine, path.Base(os.Args[0]))
	flag.Parse()
	status := commander.Execute(ctx)
	a.close()
	stop()
	os.Exit(int(status))
}
