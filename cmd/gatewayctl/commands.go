package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samvad-hq/samvad-request-gateway/internal/app"
	"github.com/samvad-hq/samvad-request-gateway/internal/config"
	"github.com/samvad-hq/samvad-request-gateway/internal/logger"
	"github.com/samvad-hq/samvad-request-gateway/pkg/gateway"
	"github.com/spf13/cobra"
)

var errCallFailed = errors.New("call failed")

type rootFlags struct {
	loading     bool
	quietErrors bool
	headers     []string
	query       []string
	metricsOut  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "gatewayctl",
		Short:         "Issue HTTP calls through the request gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&flags.loading, "loading", false, "show a loading indicator while calls are in flight")
	pf.BoolVar(&flags.quietErrors, "quiet-errors", false, "do not surface failures (exit status still reflects them)")
	pf.StringArrayVar(&flags.headers, "header", nil, "extra request header as key=value (repeatable)")
	pf.StringArrayVar(&flags.query, "query", nil, "extra query parameter as key=value (repeatable)")
	pf.StringVar(&flags.metricsOut, "metrics-out", "", "write gateway metrics to this file on exit")

	root.AddCommand(
		newGetCmd(flags),
		newPostCmd(flags),
		newCallCmd(flags),
		newBatchCmd(flags),
		newJournalCmd(flags),
	)
	return root
}

func newGetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <url>",
		Short: "Issue a GET and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, flags, func(rt *app.Runtime) error {
				body, err := rt.Call(cmd.Context(), gateway.NewCall(http.MethodGet, args[0]))
				return printBody(cmd.OutOrStdout(), body, err)
			})
		},
	}
}

func newPostCmd(flags *rootFlags) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "post <url>",
		Short: "Issue a POST and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, flags, func(rt *app.Runtime) error {
				call := gateway.NewCall(http.MethodPost, args[0])
				call.Body = parseData(data)
				body, err := rt.Call(cmd.Context(), call)
				return printBody(cmd.OutOrStdout(), body, err)
			})
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "request body; JSON is sent as-is, anything else as a string")
	return cmd
}

func newCallCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "call <endpoint-id>",
		Short: "Issue a named endpoint from the endpoints file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, flags, func(rt *app.Runtime) error {
				body, err := rt.CallEndpoint(cmd.Context(), args[0])
				return printBody(cmd.OutOrStdout(), body, err)
			})
		},
	}
}

func newBatchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Issue every endpoint from the endpoints file concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, flags, func(rt *app.Runtime) error {
				results, err := rt.RunBatch(cmd.Context())
				if len(results) == 0 && err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ENDPOINT\tRESULT\tELAPSED")
				for _, res := range results {
					outcome := "ok"
					if res.Err != nil {
						outcome = gateway.SurfaceMessage(res.Err)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", res.ID, outcome, res.Elapsed.Round(time.Millisecond))
				}
				if ferr := w.Flush(); ferr != nil {
					return ferr
				}
				if err != nil {
					return errCallFailed
				}
				return nil
			})
		},
	}
}

func newJournalCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List the most recent surfaced failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, flags, func(rt *app.Runtime) error {
				entries, err := rt.Recent(limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tMETHOD\tURL\tSTATUS\tBUCKET\tMESSAGE")
				for _, e := range entries {
					status := "-"
					if e.Status != 0 {
						status = fmt.Sprint(e.Status)
					}
					bucket := e.Bucket
					if bucket == "" {
						bucket = e.Kind
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						e.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), e.Method, e.URL, status, bucket, e.Message)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to list")
	return cmd
}

// withRuntime loads config, starts logging and builds the runtime around fn.
func withRuntime(cmd *cobra.Command, flags *rootFlags, fn func(*app.Runtime) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	headers, err := parsePairs(flags.headers)
	if err != nil {
		return fmt.Errorf("--header: %w", err)
	}
	query, err := parsePairs(flags.query)
	if err != nil {
		return fmt.Errorf("--query: %w", err)
	}
	queryAny := make(map[string]any, len(query))
	for k, v := range query {
		queryAny[k] = v
	}

	rt, err := app.NewRuntime(cmd.Context(), cfg, log, app.Options{
		Out:         cmd.ErrOrStderr(),
		Loading:     flags.loading,
		QuietErrors: flags.quietErrors,
		Headers:     headers,
		Query:       queryAny,
	})
	if err != nil {
		logger.ErrorObj("failed to initialize runtime", "error", err)
		return err
	}
	defer rt.Close()

	runErr := fn(rt)
	if flags.metricsOut != "" {
		if err := rt.WriteMetrics(flags.metricsOut); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

// parsePairs splits key=value flags.
func parsePairs(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		key, val, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", kv)
		}
		out[key] = strings.TrimSpace(val)
	}
	return out, nil
}

// parseData sends JSON bodies as decoded values and anything else as text.
func parseData(data string) any {
	if strings.TrimSpace(data) == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(data), &v); err == nil {
		return v
	}
	return data
}

func printBody(w io.Writer, body gateway.Body, err error) error {
	if err != nil {
		return errCallFailed
	}
	if len(body) == 0 {
		return nil
	}
	_, werr := fmt.Fprintln(w, body.String())
	return werr
}
