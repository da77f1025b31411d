// ABOUTME: Entry point for the slack-mcp-gateway server
// ABOUTME: Serves MCP over stdio or Streamable HTTP backed by the Slack Web API

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/slack-mcp-gateway/internal/config"
	"github.com/2389/slack-mcp-gateway/internal/gateway"
	"github.com/2389/slack-mcp-gateway/internal/mcp"
	"github.com/2389/slack-mcp-gateway/internal/slack"
	"github.com/2389/slack-mcp-gateway/internal/tools"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
      _            _
  ___| | __ _  ___| | __    _ __ ___   ___ _ __
 / __| |/ _` + "`" + ` |/ __| |/ /___| '_ ` + "`" + ` _ \ / __| '_ \
 \__ \ | (_| | (__|   <____| | | | | | (__| |_) |
 |___/_|\__,_|\___|_|\_\   |_| |_| |_|\___| .__/
                                          |_| gateway
`

// getConfigPath returns the path to the gateway config file.
// Priority: SLACK_MCP_CONFIG env var > XDG_CONFIG_HOME/slack-mcp-gateway/gateway.yaml
// > ~/.config/slack-mcp-gateway/gateway.yaml. Returns "" when no file exists,
// in which case defaults plus environment variables apply.
func getConfigPath() string {
	if envPath := os.Getenv("SLACK_MCP_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	path := filepath.Join(configDir, "slack-mcp-gateway", "gateway.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: slack-mcp-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the gateway (flags: --transport, --host, --port, --config)")
		fmt.Println("  health   Check gateway health")
		fmt.Println("  version  Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx, os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// serveFlags holds the overrides accepted by serve and health.
type serveFlags struct {
	configPath string
	transport  string
	host       string
	port       int
}

// parseFlags handles both "--flag value" and "--flag=value" forms.
func parseFlags(args []string) (*serveFlags, error) {
	f := &serveFlags{configPath: getConfigPath()}

	take := func(i int, name string) (string, int, error) {
		if i+1 >= len(args) {
			return "", i, fmt.Errorf("%s requires a value", name)
		}
		return args[i+1], i + 1, nil
	}

	var err error
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var value string
		switch {
		case arg == "--config":
			value, i, err = take(i, arg)
			f.configPath = value
		case strings.HasPrefix(arg, "--config="):
			f.configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--transport":
			value, i, err = take(i, arg)
			f.transport = value
		case strings.HasPrefix(arg, "--transport="):
			f.transport = strings.TrimPrefix(arg, "--transport=")
		case arg == "--host":
			value, i, err = take(i, arg)
			f.host = value
		case strings.HasPrefix(arg, "--host="):
			f.host = strings.TrimPrefix(arg, "--host=")
		case arg == "--port":
			value, i, err = take(i, arg)
			if err == nil {
				f.port, err = strconv.Atoi(value)
			}
		case strings.HasPrefix(arg, "--port="):
			f.port, err = strconv.Atoi(strings.TrimPrefix(arg, "--port="))
		default:
			return nil, fmt.Errorf("unknown flag: %s", arg)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func loadConfig(f *serveFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if f.transport != "" {
		cfg.Transport = f.transport
	}
	if f.host != "" {
		cfg.Server.Host = f.host
	}
	if f.port != 0 {
		cfg.Server.Port = f.port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	if cfg.Transport == config.TransportStdio {
		return runStdio(ctx, cfg)
	}
	return runHTTP(ctx, cfg, flags.configPath)
}

// runStdio serves MCP over stdin/stdout for a single local client. Nothing
// but protocol frames may touch stdout, so logs go to stderr.
func runStdio(ctx context.Context, cfg *config.Config) error {
	if cfg.Slack.Token == "" {
		return fmt.Errorf("the stdio transport requires a Slack token: set slack.token, SLACK_TOKEN, or SLACK_BOT_TOKEN")
	}

	logger := setupLogger(cfg.Logging, os.Stderr)

	client, err := slack.NewClient(slack.Config{
		Token:   cfg.Slack.Token,
		BaseURL: cfg.Slack.BaseURL,
		Logger:  logger.With("component", "slack"),
	})
	if err != nil {
		return fmt.Errorf("creating slack client: %w", err)
	}

	registry := tools.NewRegistry(client, tools.Options{
		TimeBudget:            cfg.Pagination.TimeBudget,
		AggregateWithoutQuery: cfg.Pagination.AggregateWithoutQuery,
		Logger:                logger.With("component", "tools"),
	})

	server, err := mcp.NewServer(mcp.Config{
		Registry: registry,
		Logger:   logger.With("component", "mcp"),
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	logger.Info("serving MCP on stdio", "version", version)
	transport := mcp.NewStdioTransport(server, os.Stdin, os.Stdout, logger)
	return transport.Run(ctx)
}

func runHTTP(ctx context.Context, cfg *config.Config, configPath string) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	logger := setupLogger(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	if configPath == "" {
		fmt.Println("Config:   (defaults + environment)")
	} else {
		fmt.Printf("Config:   %s\n", configPath)
	}
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.Addr())
	green.Print("    ▶ ")
	if cfg.Slack.Token != "" {
		fmt.Println("Token:    configured")
	} else {
		fmt.Println("Token:    per-request bearer only")
	}
	fmt.Println()

	logger.Info("starting slack-mcp-gateway",
		"version", version,
		"addr", cfg.Server.Addr(),
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func runHealth(ctx context.Context, args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.Addr())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func setupLogger(cfg config.LoggingConfig, out *os.File) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = &colorHandler{
			level: level,
			out:   out,
		}
	}

	return slog.New(handler)
}
