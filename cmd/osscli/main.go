package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-oss/pkg/simpleoss"
	"github.com/tendant/simple-oss/pkg/simpleoss/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds the global flags and the disks built from them.
type cli struct {
	configFile string
	disk       string
	verbose    bool

	registry *simpleoss.Registry
}

func NewRootCommand() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "osscli",
		Short: "OSS disk helper",
		Long: `Command line access to configured OSS disks.

Disks come from a YAML config file, .env and ALIOSS_* environment variables.
Without configuration a local in-memory disk named "oss" is used.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "YAML config file (optional)")
	rootCmd.PersistentFlags().StringVarP(&c.disk, "disk", "d", "", "disk name (default: the configured default disk)")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(c.newSignCommand())
	rootCmd.AddCommand(c.newUploadURLCommand())
	rootCmd.AddCommand(c.newUploadCommand())
	rootCmd.AddCommand(c.newClassifyCommand())
	rootCmd.AddCommand(c.newValidateCommand())
	rootCmd.AddCommand(c.newMetaCommand())
	rootCmd.AddCommand(c.newPutURLCommand())
	rootCmd.AddCommand(c.newPutCommand())
	rootCmd.AddCommand(c.newGetCommand())

	return rootCmd
}

func (c *cli) load() error {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []config.Option{config.WithDotEnv()}
	if c.configFile != "" {
		opts = append(opts, config.WithFile(c.configFile))
	}
	opts = append(opts, config.WithEnv())

	cfg, err := config.Load(opts...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	registry, err := cfg.BuildRegistry(simpleoss.WithLogger(logger))
	if err != nil {
		return err
	}
	c.registry = registry
	logger.Debug("disks loaded", "disks", registry.Names(), "default", registry.DefaultName())
	return nil
}

func (c *cli) client() (*simpleoss.Adapter, error) {
	return c.registry.Client(c.disk)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
