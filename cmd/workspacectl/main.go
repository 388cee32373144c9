// Command workspacectl inspects and drives a NaCl configuration workspace
// from the shell: listing merged elements, printing collected errors, and
// managing declared environments.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/vk/naclworkspace/internal/cli"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "a critical startup error occurred: %v\n", r)
			os.Exit(1)
		}
	}()

	return cli.Run(context.Background(), args, os.Stdout, os.Stderr)
}
