package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/erpsync/internal/cli"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

func main() {
	os.Exit(run())
}

// run maps the command result to an exit code. A panic exits with
// erpsync.ExitPanic after printing the stack.
func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "erpsync: internal error: %v\n%s\n", r, debug.Stack())
			code = erpsync.ExitPanic
		}
	}()

	if os.Getenv("ERPSYNC_TEST_PANIC") == "1" {
		panic("ERPSYNC_TEST_PANIC is set")
	}
	return erpsync.ExitCodeForError(cli.Execute())
}
