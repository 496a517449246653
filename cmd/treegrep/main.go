package main

import (
	"os"
	"os/signal"
	"syscall"
	"treegrep/internal/ui/cli"
)

func main() {
	// Writes to a closed pipe must fail with EPIPE instead of killing the
	// process, so `treegrep ... | head` exits cleanly.
	signal.Ignore(syscall.SIGPIPE)
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
