package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/LdDl/lockon/internal/config"
	"github.com/LdDl/lockon/internal/logging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type command struct {
	name        string
	description string
	configure   func(fs *flag.FlagSet)
	run         func(fs *flag.FlagSet, app *appContext, stdout io.Writer) error
	skipInit    bool
}

// appContext holds configuration and logger shared by subcommands
type appContext struct {
	cfg    config.Config
	logger zerolog.Logger
}

type rootCommand struct {
	commands   map[string]command
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *rootCommand {
	rc := &rootCommand{
		commands: make(map[string]command),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	rc.register(newRunCommand())
	rc.register(newDoctorCommand())
	rc.register(newVersionCommand())
	return rc
}

func (rc *rootCommand) register(cmd command) {
	rc.commands[cmd.name] = cmd
}

// Execute parses global flags and dispatches to a subcommand
func (rc *rootCommand) Execute(args []string) error {
	rootFlags := flag.NewFlagSet("lockon", flag.ContinueOnError)
	rootFlags.SetOutput(rc.stderr)
	rootFlags.Usage = func() { rc.printHelp() }
	rootFlags.StringVar(&rc.configPath, "config", "", "Path to JSON config file (defaults are used if empty)")
	rootFlags.StringVar(&rc.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootFlags.StringVar(&rc.logFormat, "log-format", "", "Override log output format (json, console)")

	if err := rootFlags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	remaining := rootFlags.Args()
	if len(remaining) == 0 {
		rc.printHelp()
		return nil
	}

	subcommand, ok := rc.commands[remaining[0]]
	if !ok {
		fmt.Fprintf(rc.stderr, "Unknown command %q\n\n", remaining[0])
		rc.printHelp()
		return errors.New("unknown command")
	}

	fs := flag.NewFlagSet(subcommand.name, flag.ContinueOnError)
	fs.SetOutput(rc.stderr)
	fs.Usage = func() {
		fmt.Fprintf(rc.stdout, "Usage: lockon %s [flags]\n", subcommand.name)
		fmt.Fprintln(rc.stdout, subcommand.description)
		fs.PrintDefaults()
	}
	if subcommand.configure != nil {
		subcommand.configure(fs)
	}
	if err := fs.Parse(remaining[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	var app *appContext
	if !subcommand.skipInit {
		var err error
		app, err = rc.initApp()
		if err != nil {
			fmt.Fprintf(rc.stderr, "lockon: %v\n", err)
			return err
		}
	}
	err := subcommand.run(fs, app, rc.stdout)
	if err != nil && app != nil {
		app.logger.Error().Err(err).Str("command", subcommand.name).Msg("Command failed")
	}
	return err
}

func (rc *rootCommand) initApp() (*appContext, error) {
	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return nil, err
	}
	if rc.logLevel != "" {
		cfg.Logging.Level = rc.logLevel
	}
	if rc.logFormat != "" {
		cfg.Logging.Format = rc.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: rc.stderr,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("source", cfg.Source).Msg("Configuration loaded")
	return &appContext{cfg: cfg, logger: logger}, nil
}

func (rc *rootCommand) printHelp() {
	fmt.Fprintf(rc.stdout, "lockon - target lock tracking loop\nVersion: %s\n\n", versionString())
	fmt.Fprintln(rc.stdout, "Usage: lockon [global flags] <command> [command flags]")
	fmt.Fprintln(rc.stdout, "Global flags:")
	fmt.Fprintln(rc.stdout, "  -config string      Path to JSON config file (defaults are used if empty)")
	fmt.Fprintln(rc.stdout, "  -log-level string   Override log level (debug, info, warn, error)")
	fmt.Fprintln(rc.stdout, "  -log-format string  Override log output format (json, console)")
	fmt.Fprintln(rc.stdout, "")
	fmt.Fprintln(rc.stdout, "Available commands:")

	names := make([]string, 0, len(rc.commands))
	for name := range rc.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(rc.stdout, "  %-10s %s\n", name, rc.commands[name].description)
	}
}

func intFlag(fs *flag.FlagSet, name string) int {
	f := fs.Lookup(name)
	if f == nil {
		return 0
	}
	getter, ok := f.Value.(flag.Getter)
	if !ok {
		return 0
	}
	v, _ := getter.Get().(int)
	return v
}

func stringFlag(fs *flag.FlagSet, name string) string {
	f := fs.Lookup(name)
	if f == nil {
		return ""
	}
	return f.Value.String()
}
