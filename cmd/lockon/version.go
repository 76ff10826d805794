package main

import (
	"flag"
	"fmt"
	"io"
	"runtime"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func newVersionCommand() command {
	return command{
		name:        "version",
		description: "Print version information",
		skipInit:    true,
		run: func(fs *flag.FlagSet, app *appContext, stdout io.Writer) error {
			_, err := fmt.Fprintln(stdout, versionString())
			return err
		},
	}
}

func versionString() string {
	return fmt.Sprintf("%s (%s %s/%s)", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
