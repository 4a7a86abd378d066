package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"intents/internal/eventbus"
	"intents/internal/intents"
	"intents/internal/toolkind"
)

func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, svc *intents.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := buildApp(ctx, opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a.svc)
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "generate NAME DESCRIPTION...",
		Short: "Ask the model for a new intent and store it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, svc *intents.Service) error {
				if timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, timeout)
					defer cancel()
				}
				res, err := svc.Generate(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, res.Message)
				if !res.Generated {
					return errors.New("generation failed")
				}
				fmt.Fprintf(out, "\n%s\n\nParameters: %s\n", res.Code, strings.Join(res.Parameters, ", "))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up on the model after this long (0 waits forever)")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored intents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, svc *intents.Service) error {
				names, err := svc.List(ctx)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			})
		},
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate NAME",
		Short: "Check and run a stored intent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, svc *intents.Service) error {
				v, err := svc.Validate(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v.Message)
				if v.Output != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "\nOutput:\n%s", v.Output)
				}
				if v.Status != intents.StatusSuccess {
					return fmt.Errorf("%s error in %s", v.Kind, args[0])
				}
				return nil
			})
		},
	}
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	kinds := make([]string, 0, len(toolkind.All()))
	for _, k := range toolkind.All() {
		kinds = append(kinds, k.String())
	}
	return &cobra.Command{
		Use:       "create TYPE NAME",
		Short:     "Create an intent from a built-in template",
		Long:      "Create an intent from a built-in template. TYPE is one of: " + strings.Join(kinds, ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, svc *intents.Service) error {
				path, err := svc.Scaffold(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ Intent '%s' created in %s\n", args[1], path)
				return nil
			})
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print lifecycle events published on NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cfg.NATS.URL == "" {
				return errors.New("nats.url (or NATS_URL) must be set to watch events")
			}
			bus, err := eventbus.NewNATSBus(eventbus.NATSConfig{URL: cfg.NATS.URL, Subject: cfg.NATS.Subject, Name: "intents-watch"})
			if err != nil {
				return err
			}
			defer bus.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signalContext(ctx)
			defer stop()

			out := cmd.OutOrStdout()
			if _, err := bus.Subscribe(ctx, func(evt eventbus.IntentEvent) {
				b, _ := json.Marshal(evt)
				fmt.Fprintln(out, string(b))
			}); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}
}
