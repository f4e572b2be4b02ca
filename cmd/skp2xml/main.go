// skp2xml converts a scene model into an SkpToXML document.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/skp2xml/internal/config"
	"github.com/Faultbox/skp2xml/internal/logger"
	"github.com/Faultbox/skp2xml/pkg/exporter"
	"github.com/Faultbox/skp2xml/pkg/source"
	"github.com/Faultbox/skp2xml/pkg/source/memory"
)

// app carries what every command needs once flags are parsed.
type app struct {
	stdout, stderr io.Writer
	flags          *config.Flags
	cfg            *config.Config
	open           source.Opener
	progress       bool

	// mu serializes conversions started by the watch command.
	mu sync.Mutex
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code. A
// conversion that fails still exits 0; only usage and setup errors exit 1.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, open: memory.Opener()}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer logger.Sync()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "skp2xml <source>",
		Short: "Convert a scene model to an SkpToXML document",
		Long: `skp2xml reads a scene model and writes it as an SkpToXML document:
layers, materials, component definitions and the nested geometry, with
inherited layers and materials resolved onto every face and edge.
Textures used by the model are copied next to the document.

Scene models are read from YAML manifests (.yaml, .yml).`,
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runConvert,
	}
	a.flags = config.BindFlags(root.PersistentFlags())
	root.Flags().BoolVar(&a.progress, "progress", false, "print phase progress to stderr")

	root.AddCommand(a.infoCmd(), a.objCmd(), a.watchCmd(), a.configCmd())
	return root
}

// setup loads configuration and installs the global logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.flags)
	if err != nil {
		return err
	}
	opts := cfg.LoggerOptions()
	opts.Console = a.stderr
	if err := logger.Init(opts); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) exporter() *exporter.Exporter {
	return exporter.New(a.cfg.Options(), logger.Log)
}

func (a *app) runConvert(cmd *cobra.Command, args []string) error {
	a.convert(cmd.Context(), args[0])
	return nil
}

// convert runs one conversion and reports the outcome. Failures are logged,
// not returned.
func (a *app) convert(ctx context.Context, src string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	exp := a.exporter()
	if a.progress {
		exp.SetProgress(&consoleProgress{w: a.stderr})
	}
	stats, err := exp.Convert(ctx, a.open, src, a.cfg.Output.Path)
	if err != nil {
		logger.Log.Error("conversion failed", zap.String("src", src), zap.Error(err))
		return false
	}
	fmt.Fprintf(a.stdout, "%s -> %s: %d layers, %d faces, %d edges, %d textures\n",
		src, a.cfg.Output.Path, stats.Layers, stats.Faces, stats.Edges, stats.Textures)
	return true
}

// consoleProgress prints each phase message with its percentage.
type consoleProgress struct {
	w       io.Writer
	percent float64
}

func (p *consoleProgress) SetPercentDone(percent float64) { p.percent = percent }

func (p *consoleProgress) SetMessage(msg string) {
	fmt.Fprintf(p.w, "[%3.0f%%] %s\n", p.percent, msg)
}

func (p *consoleProgress) Cancelled() bool { return false }
