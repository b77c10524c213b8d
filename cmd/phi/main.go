package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"phi/internal/api/forecast"
	"phi/internal/bootstrap"
	"phi/internal/ledger"
)

// LedgerReader reads anchored provenance records
type LedgerReader interface {
	Get(ctx context.Context, id string) (ledger.Record, bool, error)
}

// Backend is what the data commands operate on
type Backend struct {
	Personas   forecast.Personas
	Forecaster forecast.Forecaster
	Ledger     LedgerReader // nil when the ledger is disabled
	Close      func()
}

// Opener builds a Backend. Tests swap it for fakes.
type Opener func() (*Backend, error)

func openContainer() (*Backend, error) {
	c := bootstrap.NewContainer()
	c.MustInit()

	b := &Backend{
		Personas:   c.Services.Persona,
		Forecaster: c.Services.Forecast,
		Close:      c.Shutdown,
	}
	if c.Adapters.Ledger != nil {
		b.Ledger = c.Adapters.Ledger
	}
	return b, nil
}

func main() {
	root := newRootCmd(openContainer)
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:          "phi",
		Short:        "phi - persona-aware market forecasts with ledger provenance",
		SilenceUsage: true,
	}

	root.AddCommand(
		newPredictCmd(open),
		newPersonaCmd(open),
		newPredictionsCmd(open),
		newLedgerCmd(open),
		newSeedCmd(open),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := bootstrap.NewContainer()
			c.MustInit()
			c.MustInitApplication()

			if err := c.Start(); err != nil {
				return err
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

			select {
			case s := <-sig:
				c.Log.Infof("Received signal %s", s)
			case <-c.Context.Done():
			}

			c.Shutdown()
			return nil
		},
	}
}
