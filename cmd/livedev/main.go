package main

import (
	"fmt"
	"os"
	"time"

	"github.com/vango-dev/livedev/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╦╦  ╦╔═╗╔╦╗╔═╗╦  ╦
  ║  ║╚╗╔╝║╣  ║║║╣ ╚╗╔╝
  ╩═╝╩ ╚╝ ╚═╝═╩╝╚═╝ ╚╝
`

func main() {
	rootCmd := rootCmd()
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(paint("\033[36m", banner))
}

// paint wraps text in an ANSI color when colors are enabled.
func paint(code, text string) string {
	if !errors.ColorsEnabled() {
		return text
	}
	return code + text + "\033[0m"
}

func timestamp() string {
	return paint("\033[90m", time.Now().Format("15:04:05"))
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("%s %s %s\n", timestamp(), paint("\033[32m", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("%s %s %s\n", timestamp(), paint("\033[33m", "⚠"), fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s %s\n", timestamp(), paint("\033[31m", "✗"), fmt.Sprintf(format, args...))
}
