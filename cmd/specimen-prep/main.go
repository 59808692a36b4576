package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"specimen-prep/internal/logger"

	"github.com/rs/zerolog"
)

const AppName = "specimen-prep"

const usage = `Usage: specimen-prep [-log-level level] [-log-format console|json] <command> [flags] args...

Commands:
  prepare   extract specimens and normalize them onto a fixed canvas
  augment   write noisy and rescaled variants of images
  features  load a feature file and fit PCA on it

Run 'specimen-prep <command> -h' for command flags.
`

// errUsage marks errors caused by bad invocation. Usage has already been
// printed when it is returned.
var errUsage = errors.New("invalid usage")

// globalFlags are parsed before the command name.
type globalFlags struct {
	logLevel  string
	logFormat string
}

func parseGlobalFlags(args []string, output io.Writer) (globalFlags, []string, error) {
	var gf globalFlags
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&gf.logLevel, "log-level", "", "debug, info, warn or error; overrides LOG_LEVEL and DEBUG")
	fs.StringVar(&gf.logFormat, "log-format", string(logger.FormatConsole), "console or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return gf, nil, err
		}
		return gf, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return gf, nil, errUsage
	}
	return gf, fs.Args(), nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	gf, rest, err := parseGlobalFlags(args, os.Stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case err != nil:
		return 2
	}

	format, err := logger.ParseFormat(gf.logFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log := logger.New(os.Stderr, determineLogLevel(gf.logLevel), format)
	command, cmdArgs := rest[0], rest[1:]
	log.Debug("Main", "starting", map[string]interface{}{
		"command":    command,
		"go_version": runtime.Version(),
		"num_cpu":    runtime.NumCPU(),
	})

	switch command {
	case "prepare":
		err = runPrepare(cmdArgs, log)
	case "augment":
		err = runAugment(cmdArgs, log)
	case "features":
		err = runFeatures(cmdArgs, log)
	case "help":
		fmt.Fprint(os.Stdout, usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		return 2
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		log.Error("Main", "command failed", err, map[string]interface{}{"command": command})
		return 1
	}
}

// determineLogLevel prefers the -log-level flag, then LOG_LEVEL, then
// DEBUG=1, and defaults to info.
func determineLogLevel(flagLevel string) zerolog.Level {
	if flagLevel != "" {
		return logger.ParseLevel(flagLevel)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return logger.ParseLevel(level)
	}
	if os.Getenv("DEBUG") == "1" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// parseCommand parses a subcommand's flags, mapping bad flags to errUsage.
func parseCommand(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}
