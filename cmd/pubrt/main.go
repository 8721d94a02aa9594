package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	clientcmd "github.com/rzbill/pubrt/internal/cmd/client"
	serverrun "github.com/rzbill/pubrt/internal/cmd/server"
	cfgpkg "github.com/rzbill/pubrt/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pubrt",
		Short: "pubrt ingest buffer and live stream",
		Long:  "pubrt accepts JSON records over HTTP, buffers them in arrival order, and replays then tails them to every /stream client.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverCmd.AddCommand(newServerStartCommand())
	rootCmd.AddCommand(serverCmd)

	clientcmd.AddCommands(rootCmd, clientcmd.APIURLFromEnv)
	return rootCmd
}

func newServerStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the pubrt server (HTTP, plus gRPC health)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.String("config", os.Getenv("PUBRT_CONFIG"), "Config file (.yaml, .yml or .json)")
	f.String("http", "", "HTTP listen address (default :8000)")
	f.String("grpc", "", "gRPC health listen address (default :50051; \"off\" disables)")
	f.String("cors", "", "Comma-separated allowed origins (default *)")
	f.Int("poll-interval-ms", 0, "Idle stream poll interval in ms (default 500)")
	f.Int64("max-record-bytes", 0, "Largest accepted ingest body in bytes (default 1MiB)")
	f.String("backend", "", "Buffer backend: memory|pebble (default memory)")
	f.Bool("on-disk", false, "Keep pebble data in a scratch directory instead of memory")
	f.String("data-dir", "", "Scratch directory for the pebble backend; wiped at start")
	f.String("fsync", "", "Pebble fsync mode: always|interval|never (default never)")
	f.String("log-level", "", "Log level: debug|info|warn|error")
	f.String("log-format", "", "Log format: text|json")
	f.String("log-output", "", "Log output: stderr|stdout|null|<file>")
	f.StringSlice("log-redact", nil, "Field keys to mask in logs")
	f.Int("log-sample-initial", 0, "Debug/info entries logged per message before sampling")
	f.Int("log-sample-thereafter", 0, "After the initial entries, log one in N (0 disables sampling)")
	return cmd
}

// loadConfig layers defaults, the config file, environment, and flags
// that were explicitly set, then validates the result.
func loadConfig(f *pflag.FlagSet) (cfgpkg.Config, error) {
	path, _ := f.GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)

	if f.Changed("http") {
		cfg.HTTPAddr, _ = f.GetString("http")
	}
	if f.Changed("grpc") {
		v, _ := f.GetString("grpc")
		if strings.EqualFold(v, "off") {
			v = ""
		}
		cfg.GRPCAddr = v
	}
	if f.Changed("cors") {
		v, _ := f.GetString("cors")
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	if f.Changed("poll-interval-ms") {
		cfg.PollIntervalMs, _ = f.GetInt("poll-interval-ms")
	}
	if f.Changed("max-record-bytes") {
		cfg.MaxRecordBytes, _ = f.GetInt64("max-record-bytes")
	}
	if f.Changed("backend") {
		cfg.Store.Backend, _ = f.GetString("backend")
	}
	if f.Changed("on-disk") {
		cfg.Store.OnDisk, _ = f.GetBool("on-disk")
	}
	if f.Changed("data-dir") {
		cfg.Store.DataDir, _ = f.GetString("data-dir")
	}
	if f.Changed("fsync") {
		cfg.Store.Fsync, _ = f.GetString("fsync")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.Log.Format, _ = f.GetString("log-format")
	}
	if f.Changed("log-output") {
		cfg.Log.Output, _ = f.GetString("log-output")
	}
	if f.Changed("log-redact") {
		cfg.Log.Redact, _ = f.GetStringSlice("log-redact")
	}
	if f.Changed("log-sample-initial") {
		cfg.Log.SampleInitial, _ = f.GetInt("log-sample-initial")
	}
	if f.Changed("log-sample-thereafter") {
		cfg.Log.SampleThereafter, _ = f.GetInt("log-sample-thereafter")
	}
	if err := cfg.Validate(); err != nil {
		return cfgpkg.Config{}, err
	}
	return cfg, nil
}
