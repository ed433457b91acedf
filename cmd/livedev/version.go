package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// buildInfo describes the running binary. Values stamped with -ldflags win;
// otherwise the VCS settings recorded by the Go toolchain fill the gaps.
type buildInfo struct {
	Version   string
	Commit    string
	Date      string
	Module    string
	GoVersion string
	Platform  string
}

func readBuildInfo() buildInfo {
	info := buildInfo{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.Module = bi.Main.Path
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		}
	}
	return info
}

func (b buildInfo) print(w io.Writer) {
	fmt.Fprintf(w, "livedev %s\n", b.Version)
	if b.Module != "" {
		fmt.Fprintf(w, "  module   %s\n", b.Module)
	}
	fmt.Fprintf(w, "  commit   %s\n", b.Commit)
	fmt.Fprintf(w, "  built    %s\n", b.Date)
	fmt.Fprintf(w, "  go       %s %s\n", b.GoVersion, b.Platform)
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := readBuildInfo()
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), info.Version)
				return
			}
			info.print(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version")

	return cmd
}
