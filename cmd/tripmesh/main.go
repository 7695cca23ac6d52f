// Package main is the entry point for the tripmesh binary, a command line
// front end for the travel and study assistant.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/tripmesh"
	"github.com/hupe1980/tripmesh/config"
	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds the persistent flags shared by all sub commands.
type cliFlags struct {
	configPath string
	user       string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:   "tripmesh",
		Short: "Travel and study assistant",
		Long: `tripmesh routes travel questions to specialised handlers: weather and
activities, public holidays, city facts and a scholarship search pipeline.

Examples:
  tripmesh ask "weather in Paris"
  tripmesh chat --config tripmesh.yaml
  tripmesh routes`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&flags.user, "user", "u", defaultUser(), "User id owning the session")
	rootCmd.PersistentFlags().StringVarP(&flags.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error); overrides the configuration")

	rootCmd.AddCommand(newAskCmd(flags), newChatCmd(flags), newRoutesCmd(flags))

	return rootCmd
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func loadConfig(flags *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func newAssistant(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*tripmesh.Assistant, logging.Logger, error) {
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     cfg.LogLevel(),
		Format:    cfg.Log.Format,
		Output:    cmd.ErrOrStderr(),
		AddSource: cfg.Log.AddSource,
		Component: "tripmesh",
	})

	a, err := tripmesh.NewAssistant(ctx, cfg, func(o *tripmesh.Options) { o.Logger = logger })
	if err != nil {
		return nil, nil, err
	}

	return a, logger, nil
}

func newAskCmd(flags *cliFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			a, _, err := newAssistant(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			sid := a.Engine().StartSession(flags.user)
			resp, err := a.HandleRequest(ctx, sid, strings.Join(args, " "))

			if resp != nil {
				if perr := printResponse(cmd.OutOrStdout(), resp, asJSON); perr != nil {
					return perr
				}
			}

			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response as JSON")

	return cmd
}

func newChatCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long: `Start an interactive session. Every line is one request; the session and
its state persist until "exit". With --config the routing table is reloaded
whenever the file changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			a, logger, err := newAssistant(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			a.StartJanitor(ctx)

			if addr := cfg.Observability.MetricsAddr; addr != "" {
				go serveMetrics(ctx, addr, a.MetricsHandler(), logger)
			}

			if flags.configPath != "" {
				err := config.Watch(ctx, flags.configPath, func(next *config.Config, err error) {
					if err != nil {
						logger.Warn("config reload failed, keeping previous configuration", "error", err.Error())
						return
					}
					if err := a.ApplyConfig(next); err != nil {
						logger.Warn("config apply failed", "error", err.Error())
					}
				})
				if err != nil {
					return err
				}
			}

			return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a, a.Engine().StartSession(flags.user))
		},
	}
}

func chatLoop(ctx context.Context, in io.Reader, out io.Writer, a *tripmesh.Assistant, sessionID string) error {
	fmt.Fprintln(out, `Ask about weather, holidays, cities or scholarships. Type "exit" to quit.`)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		resp, err := a.HandleRequest(ctx, sessionID, line)
		if resp != nil {
			_ = printResponse(out, resp, false)
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)

			var sf *core.StageFailure
			if errors.As(err, &sf) && sf.Retryable {
				fmt.Fprintln(out, "(the request may succeed if you try again)")
			}
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func newRoutesCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the routing table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			r, err := tripmesh.BuildRouter(cfg.Routing)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tMATCH\tHANDLER")
			for i, b := range r.Bindings() {
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, b.Predicate.String(), b.Handler)
			}
			if d := r.Default(); d != "" {
				fmt.Fprintf(w, "-\tdefault\t%s\n", d)
			}

			return w.Flush()
		},
	}
}

func printResponse(w io.Writer, resp *core.Response, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.Text != "" {
		fmt.Fprintln(w, resp.Text)
	}
	if resp.Partial && len(resp.Completed) > 0 {
		fmt.Fprintf(w, "(partial: completed %s)\n", strings.Join(resp.Completed, ", "))
	}

	return nil
}

func serveMetrics(ctx context.Context, addr string, h http.Handler, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err.Error())
	}
}
