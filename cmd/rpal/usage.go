package main

import (
	"fmt"
	"os"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  rpal [--ast] [--st] [--cs] [--trace] [--print-result] <file.ast>")
	fmt.Fprintln(os.Stderr, "  rpal run [flags] <file.ast>")
	fmt.Fprintln(os.Stderr, "  rpal repl [--trace] [--print-result]")
	fmt.Fprintln(os.Stderr, "  rpal test [suite ...]")
	fmt.Fprintln(os.Stderr, "  rpal fixtures fetch [--update] [suite ...]")
	fmt.Fprintln(os.Stderr, "  rpal version")
}
