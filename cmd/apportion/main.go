// cmd/apportion/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexshd/apportion/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := app.RunApportion(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
