// codelayers CLI - checks, precompiles and runs the code layers of a project
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/codelayers/compiler"
	"github.com/chazu/codelayers/engine"
	"github.com/chazu/codelayers/manifest"
)

func main() {
	verbose := flag.Int("v", 0, "Log verbosity (0-4)")
	dir := flag.String("C", ".", "Directory to look for codelayers.toml from")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: codelayers [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		fmt.Fprintf(os.Stderr, "  check              Compile every layer and report class name conflicts\n")
		fmt.Fprintf(os.Stderr, "  build [-o dir]     Write every source layer as a precompiled code file\n")
		fmt.Fprintf(os.Stderr, "  run <script>...    Load the main class of each script and print it\n")
		fmt.Fprintf(os.Stderr, "  watch              Keep the layers up to date until interrupted\n")
	}
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*dir, args); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

// run executes one command and hands its error back to main.
func run(dir string, args []string) error {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	if m == nil {
		return fmt.Errorf("no %s found", manifest.FileName)
	}

	switch args[0] {
	case "check":
		return handleCheckCommand(m)
	case "build":
		return handleBuildCommand(m, args[1:])
	case "run":
		return handleRunCommand(m, args[1:])
	case "watch":
		return handleWatchCommand(m)
	default:
		flag.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow)
	nameColor  = color.New(color.FgCyan)
)

// newEngine builds an engine from the manifest and applies its layers.
func newEngine(m *manifest.Manifest) (*engine.Engine, error) {
	e, err := engine.New(m.EngineConfig(compiler.Factory))
	if err != nil {
		return nil, err
	}
	if err := m.Apply(e, compiler.Factory); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func handleCheckCommand(m *manifest.Manifest) error {
	e, err := newEngine(m)
	if err != nil {
		return err
	}
	defer e.Close()
	for _, c := range e.Layers() {
		fmt.Printf("%s %3d sources %3d classes\n", nameColor.Sprintf("%-20s", c.SourcesName()), len(c.Sources()), len(c.ClassNames()))
	}
	return nil
}

func handleWatchCommand(m *manifest.Manifest) error {
	if m.Precompiled() {
		return errors.New("watch requires source layers")
	}
	e, err := engine.New(m.EngineConfig(compiler.Factory))
	if err != nil {
		return err
	}
	defer e.Close()

	u := engine.NewUpdater(e, m.Provider(compiler.Factory), m.UpdateInterval())
	if _, err := u.Check(); err != nil {
		warnColor.Fprintf(os.Stderr, "Initial update failed: %v\n", err)
	}
	u.Start()
	defer u.Stop()
	fmt.Printf("Watching %d layers every %s (generation %d)\n", len(m.Layers), u.Interval(), e.Generation())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Printf("Stopping after %d updates\n", u.UpdateCount())
	return nil
}
