// cmd/precodita/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sghaida/precodita/dispatch"
	"github.com/sghaida/precodita/internal/config"
	"github.com/sghaida/precodita/internal/log"
	"github.com/sghaida/precodita/internal/scenario"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries per-invocation state so run can be called repeatedly in tests.
type cli struct {
	stdout, stderr io.Writer

	v       *viper.Viper
	cfgFile string
	trace   bool
	cfg     config.Config

	cleanup []func()
}

// run executes the command line and returns an exit code.
// It exists separately from main to allow unit testing without os.Exit.
func run(args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr, v: viper.New()}
	defer c.close()

	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		if !isReported(err) {
			_, _ = fmt.Fprintln(stderr, "error:", err)
		}
		return exitCode(err)
	}
	return 0
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "precodita",
		Short:         "Explore overridable multiple dispatch scenarios",
		Long:          `precodita resolves YAML dispatch scenarios (backends, generic functions, calls) and reports which backend each call selects.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.cfgFile, "config", "c", "", "config file (default: ./"+config.DefaultFile+" if present)")
	flags.Bool("debug", false, "write debug logs (stderr, or log_file)")
	flags.String("tie-policy", "", "tie policy: ambiguous|registration")
	flags.String("color", "", "color output: auto|always|never")
	flags.BoolVar(&c.trace, "trace", false, "print dispatch spans to stderr")

	_ = c.v.BindPFlag("debug", flags.Lookup("debug"))
	_ = c.v.BindPFlag("tie_policy", flags.Lookup("tie-policy"))
	_ = c.v.BindPFlag("color", flags.Lookup("color"))

	root.AddCommand(c.runCmd(), c.demoCmd(), c.backendsCmd(), c.kindsCmd())
	return root
}

// setup loads configuration and initialises logging.
func (c *cli) setup() error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if cfg.Debug {
		level := log.ParseLevel(cfg.LogLevel)
		if cfg.LogFile != "" {
			closeLog, err := log.InitFile(cfg.LogFile, level)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			c.cleanup = append(c.cleanup, closeLog)
		} else {
			log.Init(c.stderr, level)
			c.cleanup = append(c.cleanup, func() { log.Init(nil, level) })
		}
		log.Debug(log.CatCLI, "config loaded", "tie_policy", cfg.TiePolicy, "color", cfg.Color)
	}
	return nil
}

func (c *cli) close() {
	for i := len(c.cleanup) - 1; i >= 0; i-- {
		c.cleanup[i]()
	}
}

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Resolve every call of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			return c.runScenario(cmd.Context(), sc)
		},
	}
}

func (c *cli) demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the built-in array demo scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runScenario(cmd.Context(), scenario.Demo())
		},
	}
}

func (c *cli) backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends [scenario.yaml]",
		Short: "List the backends of a scenario (default: demo)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := scenario.Demo()
			if len(args) == 1 {
				var err error
				if sc, err = scenario.Load(args[0]); err != nil {
					return err
				}
			}
			rep, err := scenario.Run(cmd.Context(), &scenario.Scenario{
				Name:      sc.Name,
				Backends:  sc.Backends,
				Functions: sc.Functions,
			}, c.options(nil))
			if err != nil {
				return err
			}
			writeBackends(c.stdout, rep.Env.Registry().Backends())
			return nil
		},
	}
}

func (c *cli) kindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the type kinds usable in scenario files",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintln(c.stdout, strings.Join(scenario.Kinds(), "\n"))
			return err
		},
	}
}

func (c *cli) options(fnOpts []dispatch.Option) scenario.Options {
	tie, _ := c.cfg.Tie() // validated by config.Load
	return scenario.Options{
		TiePolicy:       tie,
		CacheTTL:        c.cfg.CacheTTL,
		FunctionOptions: fnOpts,
	}
}

func (c *cli) runScenario(ctx context.Context, sc *scenario.Scenario) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var fnOpts []dispatch.Option
	if c.trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(c.stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("creating trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		fnOpts = append(fnOpts, dispatch.WithTracer(tp.Tracer("precodita")))
	}

	rep, err := scenario.Run(ctx, sc, c.options(fnOpts))
	if err != nil {
		return err
	}

	writeReport(c.stdout, rep, c.useColor())
	if failed := rep.Failed(); failed > 0 {
		return expectationError{failed: failed}
	}
	return nil
}

func (c *cli) useColor() bool {
	switch c.cfg.Color {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := c.stdout.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// expectationError reports failed scenario expectations; the report itself
// already told the user which ones.
type expectationError struct{ failed int }

func (e expectationError) Error() string {
	return fmt.Sprintf("%d expectation(s) failed", e.failed)
}

func isReported(err error) bool {
	_, ok := err.(expectationError)
	return ok
}

func exitCode(err error) int {
	if isReported(err) {
		return 1
	}
	return 2
}
