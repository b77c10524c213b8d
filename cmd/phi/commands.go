package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"phi/internal/domain/persona"
	"phi/internal/seeds"
	"phi/internal/services/forecast"
	"phi/pkg/errors"
)

func withBackend(open Opener, run func(cmd *cobra.Command, b *Backend) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		b, err := open()
		if err != nil {
			return err
		}
		if b.Close != nil {
			defer b.Close()
		}
		return run(cmd, b)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newPredictCmd(open Opener) *cobra.Command {
	var (
		req  forecast.Request
		seed float64
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Produce, store and anchor one forecast",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&req.UserID, "user", "", "user id (required)")
	cmd.Flags().StringVar(&req.EventID, "event", "", "event id, e.g. BTC_24h (required)")
	cmd.Flags().Float64Var(&seed, "seed", 0, "seed in [0,1); drawn at random when omitted")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("event")

	cmd.RunE = withBackend(open, func(cmd *cobra.Command, b *Backend) error {
		if cmd.Flags().Changed("seed") {
			req.Seed = &seed
		}
		pred, err := b.Forecaster.Predict(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), pred)
	})
	return cmd
}

func newPersonaCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Manage user risk profiles",
	}

	var (
		p       persona.Persona
		risk    string
		horizon string
		markets []string
		tags    []string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Create or replace a persona",
		Args:  cobra.NoArgs,
	}
	set.Flags().StringVar(&p.UserID, "user", "", "user id (required)")
	set.Flags().StringVar(&risk, "risk", "", "risk tolerance: low, medium, high")
	set.Flags().StringVar(&horizon, "horizon", "", "horizon: 24h, 7d, 30d")
	set.Flags().StringSliceVar(&markets, "markets", nil, "comma-separated market symbols")
	set.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated domain tags")
	_ = set.MarkFlagRequired("user")
	set.RunE = withBackend(open, func(cmd *cobra.Command, b *Backend) error {
		p.RiskTolerance = persona.RiskTolerance(risk)
		p.Horizon = persona.Horizon(horizon)
		p.Markets = markets
		p.DomainTags = tags

		saved, err := b.Personas.Upsert(cmd.Context(), &p)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), saved)
	})

	get := &cobra.Command{
		Use:   "get <userId>",
		Short: "Show a persona",
		Args:  cobra.ExactArgs(1),
	}
	get.RunE = func(cmd *cobra.Command, args []string) error {
		return withBackend(open, func(cmd *cobra.Command, b *Backend) error {
			found, err := b.Personas.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), found)
		})(cmd, args)
	}

	cmd.AddCommand(set, get)
	return cmd
}

func newPredictionsCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predictions",
		Short: "Query stored predictions",
	}

	var userID, eventID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List predictions for a user or an event, newest first",
		Args:  cobra.NoArgs,
	}
	list.Flags().StringVar(&userID, "user", "", "user id")
	list.Flags().StringVar(&eventID, "event", "", "event id")
	list.MarkFlagsMutuallyExclusive("user", "event")
	list.MarkFlagsOneRequired("user", "event")
	list.RunE = withBackend(open, func(cmd *cobra.Command, b *Backend) error {
		var (
			out interface{}
			err error
		)
		if userID != "" {
			out, err = b.Forecaster.ListByUser(cmd.Context(), userID)
		} else {
			out, err = b.Forecaster.ListByEvent(cmd.Context(), eventID)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	})

	cmd.AddCommand(list)
	return cmd
}

func newLedgerCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect anchored provenance records",
	}

	get := &cobra.Command{
		Use:   "get <predictionId>",
		Short: "Show the ledger record for a prediction",
		Args:  cobra.ExactArgs(1),
	}
	get.RunE = func(cmd *cobra.Command, args []string) error {
		return withBackend(open, func(cmd *cobra.Command, b *Backend) error {
			if b.Ledger == nil {
				return errors.Wrap(errors.ErrUnavailable, "ledger is disabled")
			}
			rec, found, err := b.Ledger.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: no ledger record for %s", errors.ErrNotFound, args[0])
			}
			return printJSON(cmd.OutOrStdout(), rec)
		})(cmd, args)
	}

	cmd.AddCommand(get)
	return cmd
}

func newSeedCmd(open Opener) *cobra.Command {
	var (
		env    string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo personas (idempotent)",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&env, "env", "dev", "fixture set: dev, test")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list fixtures without writing")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		fixtures := seeds.ForEnv(env)
		if len(fixtures) == 0 {
			return errors.NewValidationError("env", "must be dev or test", env)
		}
		if dryRun {
			return printJSON(cmd.OutOrStdout(), fixtures)
		}
		return withBackend(open, func(cmd *cobra.Command, b *Backend) error {
			if err := seeds.Apply(cmd.Context(), b.Personas, fixtures); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "seeded %d personas\n", len(fixtures))
			return err
		})(cmd, args)
	}
	return cmd
}
