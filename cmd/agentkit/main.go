// Command agentkit runs agent pipelines defined in a YAML file.
//
// Usage:
//
//	agentkit ask --config pipeline.yaml "What is the highest mountain in Japan?"
//	agentkit validate --config pipeline.yaml
//	agentkit describe --config pipeline.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/agentkit"
	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/config"
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/metrics"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Ask      AskCmd      `cmd:"" help:"Run the pipeline on a query."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`
	Describe DescribeCmd `cmd:"" help:"Print the agent tree."`

	Config    string   `short:"c" help:"Path to config file." type:"path" default:"pipeline.yaml"`
	EnvFile   []string `name:"env-file" help:"Env files to load (default: .env.local, .env)."`
	LogLevel  string   `help:"Log level (debug, info, warn, error)." default:"warn"`
	LogFormat string   `help:"Log format (json, text, console)." default:"console" enum:"json,text,console"`
}

func (c *CLI) logger() logging.Logger {
	return logging.NewSlogLogger(logging.ParseLevel(c.LogLevel), c.LogFormat, false)
}

func (c *CLI) loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFiles(c.EnvFile...); err != nil {
		return nil, err
	}
	return config.Load(c.Config)
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("agentkit version %s\n", version)
	return nil
}

// AskCmd runs the configured pipeline once.
type AskCmd struct {
	Query string `arg:"" help:"Query passed to the root agent."`

	Temperature       *float64      `help:"Override the configured temperature."`
	MaxTokens         *int          `name:"max-tokens" help:"Override the configured max tokens."`
	Timeout           time.Duration `help:"Abort the run after this long (0 = no limit)." default:"5m"`
	CheckAvailability bool          `name:"check-availability" help:"Fail fast when any backend is unavailable."`
	MetricsAddr       string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address while running." placeholder:"HOST:PORT"`
}

func (c *AskCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	logger := cli.logger()

	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	var rec metrics.Recorder
	if c.MetricsAddr != "" {
		shutdown, p, err := serveMetrics(c.MetricsAddr, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		rec = p
	}

	root, err := config.Build(ctx, cfg, func(o *config.BuildOptions) {
		o.Logger = logger
		o.Metrics = rec
	})
	if err != nil {
		return err
	}

	genOpts := cfg.GenerationOptions()
	if c.Temperature != nil {
		genOpts.Temperature = *c.Temperature
	}
	if c.MaxTokens != nil {
		genOpts.MaxTokens = *c.MaxTokens
	}

	kit := agentkit.New(root, func(o *agentkit.Options) {
		o.CheckAvailability = c.CheckAvailability
		o.GenerationOptions = genOpts
		o.Logger = logger
		o.Metrics = rec
	})
	defer func() { _ = kit.Close() }()

	out, err := kit.Ask(ctx, c.Query)
	if err != nil {
		return err
	}

	printResponses(os.Stdout, out)

	return nil
}

func serveMetrics(addr string, logger logging.Logger) (func(), *metrics.Prometheus, error) {
	reg := prometheus.NewRegistry()

	p, err := metrics.NewPrometheus(reg)
	if err != nil {
		return nil, nil, err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}

	return shutdown, p, nil
}

func printResponses(w io.Writer, out []string) {
	if len(out) == 0 {
		fmt.Fprintln(w, "(no response)")
		return
	}
	for i, s := range out {
		if len(out) > 1 {
			fmt.Fprintf(w, "[%d] ", i+1)
		}
		fmt.Fprintln(w, s)
	}
}

// ValidateCmd validates the configuration file.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Printf("%s: ok\n", cli.Config)
	return nil
}

// DescribeCmd prints the agent tree.
type DescribeCmd struct{}

func (c *DescribeCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	root, err := config.Build(context.Background(), cfg)
	if err != nil {
		return err
	}

	describe(os.Stdout, root)
	return nil
}

func describe(w io.Writer, root core.Agent) {
	core.Walk(root, func(a core.Agent, depth int) bool {
		fmt.Fprintf(w, "%s- %s [%s] %s\n", strings.Repeat("  ", depth), a.Name(), kindOf(a), a.Description())
		return true
	})
	fmt.Fprintf(w, "leaves: %d\n", core.CountLeaves(root))
}

func kindOf(a core.Agent) string {
	switch v := a.(type) {
	case *agent.ModelAgent:
		info := v.Model().Info()
		return fmt.Sprintf("model %s/%s", info.Provider, info.Name)
	case *agent.SequentialAgent:
		return "sequential"
	case *agent.ParallelAgent:
		return "parallel"
	case *agent.LoopAgent:
		return "loop"
	default:
		return "custom"
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("agentkit"),
		kong.Description("AgentKit - compose model-backed agents into pipelines"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
