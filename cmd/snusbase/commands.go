package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/olgasafonova/snusbase-mcp-server/internal/config"
	"github.com/olgasafonova/snusbase-mcp-server/internal/snusbase"
)

var errNoAPIKey = errors.New("no API key: pass --api-key or set " + config.EnvAPIKey)

// rootOptions holds the persistent flags shared by every subcommand
type rootOptions struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "snusbase",
		Short:        "Query the Snusbase breach data API",
		Long:         `snusbase sends a single lookup to the Snusbase API and prints the response as indented JSON. Error payloads from the API are printed like any other answer.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "API key (default $"+config.EnvAPIKey+")")
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "API host (default $"+config.EnvBaseURL+" or "+snusbase.DefaultBaseURL+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "request timeout (default $"+config.EnvTimeout+" or "+snusbase.DefaultTimeout.String()+")")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log HTTP requests and responses to stderr")

	root.AddCommand(newSearchCmd(opts))
	root.AddCommand(newHashCmd(opts))
	root.AddCommand(newIPCmd(opts))

	return root
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		typeName string
		wildcard bool
	)

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search breach records in one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			searchType, err := snusbase.ParseSearchType(typeName)
			if err != nil {
				return err
			}
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			raw, err := client.Search(cmd.Context(), args[0], searchType, wildcard)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", string(snusbase.TypeEmail), "category: username, password, email, lastip (or ip), name, hash, wildcard")
	cmd.Flags().BoolVarP(&wildcard, "wildcard", "w", false, "treat the term as a pattern where % matches anything")

	return cmd
}

func newHashCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <hash>",
		Short: "Resolve a password hash to known plaintexts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			raw, err := client.HashLookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func newIPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ip <address>",
		Short: "Get WHOIS and location data for an IP address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			raw, err := client.IPLookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

// client builds a Snusbase client from flags, falling back to the environment
func (o *rootOptions) client(cmd *cobra.Command) (*snusbase.Client, error) {
	env, err := config.LoadClient()
	if err != nil {
		return nil, err
	}

	apiKey := o.apiKey
	if apiKey == "" {
		apiKey = env.APIKey
	}
	if apiKey == "" {
		return nil, errNoAPIKey
	}

	baseURL := o.baseURL
	if baseURL == "" {
		baseURL = env.BaseURL
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = env.Timeout
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return snusbase.NewClient(apiKey,
		snusbase.WithBaseURL(baseURL),
		snusbase.WithTimeout(timeout),
		snusbase.WithLogger(logger),
		snusbase.WithDebugLogging(o.verbose)), nil
}

// printJSON writes raw indented, followed by a newline
func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("formatting response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
