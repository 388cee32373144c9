// Package cli implements workspacectl's command dispatch: a thin,
// subcommand-per-verb wrapper around internal/workspace and internal/wsconfig,
// in the same style as the teacher's internal/cli (flag.FlagSet per command,
// a typed ExitError carrying a process exit code) combined with a
// switch-on-os.Args[1] dispatcher for the subcommand layer the teacher's
// single-command CLI never needed.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vk/naclworkspace/internal/workspace"
	"github.com/vk/naclworkspace/internal/wsconfig"
	"github.com/vk/naclworkspace/internal/wslog"
)

// ExitError carries the process exit code a failed command should produce.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// Run dispatches args (os.Args[1:]) to the named subcommand, writing normal
// output to stdout and usage/error text to stderr.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printHelp(stderr)
		return &ExitError{Code: 2, Message: "no command given"}
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		return initCmd(rest, stdout, stderr)
	case "elements":
		return elementsCmd(ctx, rest, stdout, stderr)
	case "errors":
		return errorsCmd(ctx, rest, stdout, stderr)
	case "env":
		return envCmd(ctx, rest, stdout, stderr)
	case "flush":
		return flushCmd(ctx, rest, stdout, stderr)
	case "help", "-h", "--help":
		printHelp(stdout)
		return nil
	default:
		printHelp(stderr)
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", cmd)}
	}
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `workspacectl - inspect and drive a NaCl configuration workspace

Usage:
  workspacectl <command> [options]

Commands:
  init      Initialize a new workspace directory
  elements  List the merged elements of one environment
  errors    Print parse/merge/validation errors for one environment
  env       Manage declared environments (list, add, rm, set-current)
  flush     Persist all pending parses to the on-disk cache
`)
}

// rootFlag declares --root, defaulting to $SALTO_WORKSPACE_ROOT when set
// and to the current directory otherwise.
func rootFlag(fs *flag.FlagSet) *string {
	def := os.Getenv("SALTO_WORKSPACE_ROOT")
	if def == "" {
		def = "."
	}
	return fs.String("root", def, "workspace root directory")
}

func newLogger(ctx context.Context, levelFlag, formatFlag string, w io.Writer) context.Context {
	logger := wslog.New(wslog.ParseLevel(levelFlag), formatFlag, w)
	return wslog.WithLogger(ctx, logger)
}

func initCmd(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("workspacectl init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := rootFlag(fs)
	env := fs.String("env", "default", "name of the first environment to declare")
	if err := fs.Parse(args); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	if _, err := wsconfig.Init(*root, *env); err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	fmt.Fprintf(stdout, "initialized workspace at %s (environment %q)\n", *root, *env)
	return nil
}

func elementsCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("workspacectl elements", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := rootFlag(fs)
	env := fs.String("env", "", "environment to inspect (default: the current one)")
	hidden := fs.Bool("hidden", false, "overlay previously fetched hidden values")
	level := fs.String("log-level", "info", "log level: debug, info, warn, error")
	format := fs.String("log-format", "text", "log format: text or json")
	if err := fs.Parse(args); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	ctx = newLogger(ctx, *level, *format, stderr)

	ws := workspace.NewWorkspace(ctx, *root)
	elements, err := ws.Elements(*env, *hidden)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}

	names := make([]string, 0, len(elements))
	for name := range elements {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(stdout, name)
	}
	return nil
}

func errorsCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("workspacectl errors", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := rootFlag(fs)
	env := fs.String("env", "", "environment to inspect (default: the current one)")
	runValidate := fs.Bool("validate", false, "also run validation (otherwise only parse/merge errors are shown)")
	level := fs.String("log-level", "info", "log level: debug, info, warn, error")
	format := fs.String("log-format", "text", "log format: text or json")
	if err := fs.Parse(args); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	ctx = newLogger(ctx, *level, *format, stderr)

	ws := workspace.NewWorkspace(ctx, *root)
	errs, err := ws.Errors(*env, *runValidate)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}

	for _, pe := range errs.Parse {
		fmt.Fprintf(stdout, "parse: %s: %s\n", pe.Subject.String(), pe.Message)
	}
	for _, me := range errs.Merge {
		fmt.Fprintf(stdout, "merge: %s: %s\n", me.ElemID.String(), me.Message)
	}
	for _, ve := range errs.Validate {
		fmt.Fprintf(stdout, "validate[%s]: %s: %s\n", ve.Kind.String(), ve.ElemID.String(), ve.Message)
	}

	total := len(errs.Parse) + len(errs.Merge) + len(errs.Validate)
	if total > 0 {
		return &ExitError{Code: 1, Message: fmt.Sprintf("%d error(s) found", total)}
	}
	return nil
}

func envCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("workspacectl env", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := rootFlag(fs)
	if err := fs.Parse(args); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return &ExitError{Code: 2, Message: "env requires a subcommand: list, add, rm, set-current"}
	}
	sub := rest[0]
	if err := fs.Parse(rest[1:]); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	subArgs := fs.Args()

	ws := workspace.NewWorkspace(newLogger(ctx, "info", "text", stderr), *root)
	switch sub {
	case "list":
		envs := ws.Environments()
		sort.Strings(envs)
		current := ws.CurrentEnv()
		for _, e := range envs {
			marker := " "
			if e == current {
				marker = "*"
			}
			fmt.Fprintf(stdout, "%s %s\n", marker, e)
		}
		return nil
	case "add":
		if len(subArgs) != 1 {
			return &ExitError{Code: 2, Message: "env add requires exactly one environment name"}
		}
		if err := ws.AddEnvironment(subArgs[0]); err != nil {
			return &ExitError{Code: 1, Message: err.Error()}
		}
		return nil
	case "rm":
		if len(subArgs) != 1 {
			return &ExitError{Code: 2, Message: "env rm requires exactly one environment name"}
		}
		if err := ws.DeleteEnvironment(subArgs[0]); err != nil {
			return &ExitError{Code: 1, Message: err.Error()}
		}
		return nil
	case "set-current":
		if len(subArgs) != 1 {
			return &ExitError{Code: 2, Message: "env set-current requires exactly one environment name"}
		}
		if err := ws.SetCurrentEnv(subArgs[0]); err != nil {
			return &ExitError{Code: 1, Message: err.Error()}
		}
		return nil
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown env subcommand %q", sub)}
	}
}

func flushCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("workspacectl flush", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := rootFlag(fs)
	if err := fs.Parse(args); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	ws := workspace.NewWorkspace(newLogger(ctx, "info", "text", stderr), *root)
	if err := ws.Flush(); err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	fmt.Fprintln(stdout, "flushed")
	return nil
}
