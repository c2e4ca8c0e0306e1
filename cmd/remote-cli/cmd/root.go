// Package cmd contains all CLI commands for remote-cli.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-media-remote/internal/auth"
	"github.com/sirosfoundation/go-media-remote/internal/remote"
	"github.com/sirosfoundation/go-media-remote/pkg/config"
	"github.com/sirosfoundation/go-media-remote/pkg/logging"
)

var (
	// Global flags
	configFile string
	output     string
	logLevel   string
)

// newClient loads the configuration and builds a client session
func newClient() (*remote.Client, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	c, err := remote.Setup(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return c, nil
}

// connectClient builds a client session bound to server
func connectClient(ctx context.Context, server, token string) (*remote.Client, error) {
	if server == "" {
		return nil, fmt.Errorf("--server is required")
	}

	c, err := newClient()
	if err != nil {
		return nil, err
	}

	// Probe first so the session carries the server's identity
	probe, err := c.Remote.OneTimeSetup(server, "")
	if err != nil {
		c.Close()
		return nil, err
	}
	info, err := probe.GetPublicSystemInfo(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to reach %s: %w", server, err)
	}

	c.Auth.Connect(remote.DescriptorFromInfo(probe.BasePath(), info), token)
	if c.Remote.API() == nil {
		c.Close()
		return nil, fmt.Errorf("failed to bind api for %s", server)
	}
	return c, nil
}

// printJSON formats and prints v as indented JSON
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printTable prints data in a simple table format
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], len(cell))
			}
		}
	}

	line := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			if i < len(widths) {
				fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	line(headers)
	sep := make([]string, len(headers))
	for i := range headers {
		sep[i] = strings.Repeat("-", widths[i])
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}

// printServer prints a server descriptor in the selected format
func printServer(w io.Writer, d *auth.ServerDescriptor) error {
	if output == "json" {
		return printJSON(w, d)
	}
	wizard := "no"
	if d.StartupWizardCompleted {
		wizard = "yes"
	}
	printTable(w, []string{"ID", "NAME", "ADDRESS", "VERSION", "SETUP DONE"},
		[][]string{{d.ID, d.Name, d.PublicAddress, d.Version, wizard}})
	return nil
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "remote-cli",
	Short: "CLI tool for talking to Jellyfin media servers",
	Long: `remote-cli is a command-line client for Jellyfin media servers.

It provides commands for:
  - Discovery: Find and rank the addresses a server answers on
  - Info: Show the public identity of a server
  - Sessions: Sign in, show the signed in user and follow the session socket

Examples:
  # Rank the candidate addresses for a host
  remote-cli discover media.example.com

  # Sign in and print the access token
  remote-cli login --server https://media.example.com --username alice

  # Show the user an access token belongs to
  remote-cli whoami --server https://media.example.com --token $TOKEN

Environment Variables:
  REMOTE_CONFIG   Path to the YAML configuration file
  REMOTE_*        Configuration overrides, e.g. REMOTE_HTTP_TIMEOUT=10s`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if output != "table" && output != "json" {
			return fmt.Errorf("invalid output format %q: use table or json", output)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", getEnvOrDefault("REMOTE_CONFIG", ""), "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format: table, json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// logFor returns the session logger for a command
func logFor(c *remote.Client) *zap.Logger {
	return logging.Named(c.Logger, "remote-cli")
}
