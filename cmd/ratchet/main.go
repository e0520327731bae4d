package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"go.hackfix.me/ratchet/app"
	actx "go.hackfix.me/ratchet/app/context"
	aerrors "go.hackfix.me/ratchet/app/errors"
)

// version is set at build time.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New("ratchet", filepath.Join(xdg.ConfigHome, "ratchet", "config.json"),
		app.WithContext(ctx),
		app.WithVersion(version),
		app.WithTimeSource(osTime{}),
		app.WithEnv(osEnv{}),
		app.WithFDs(
			colorable.NewColorable(os.Stdout),
			colorable.NewColorable(os.Stderr),
		),
		app.WithFS(osfs.New()),
		app.WithLogger(isatty.IsTerminal(os.Stderr.Fd())),
	)
	if err != nil {
		aerrors.Log(nil, err)
		os.Exit(1)
	}
	if err = a.Run(os.Args[1:]); err != nil {
		aerrors.Log(nil, err)
		cancel()
		os.Exit(1) //nolint:gocritic // The context is canceled above.
	}
}

type osEnv struct{}

var _ actx.Environment = &osEnv{}

func (e osEnv) Getwd() (string, error) {
	return os.Getwd()
}

type osTime struct{}

var _ actx.TimeSource = &osTime{}

func (osTime) Now() time.Time {
	return time.Now()
}
