package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"full", nil, []string{"livedev ", "commit", "built", runtime.Version(), runtime.GOOS + "/" + runtime.GOARCH}},
		{"short", []string{"--short"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := versionCmd()
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)
			if err := cmd.Execute(); err != nil {
				t.Fatal(err)
			}

			if tt.want == nil {
				if got := strings.TrimSpace(out.String()); got != readBuildInfo().Version {
					t.Errorf("short output = %q", got)
				}
				return
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestReadBuildInfo_LinkerValuesWin(t *testing.T) {
	saved := commit
	commit = "abc1234"
	t.Cleanup(func() { commit = saved })

	if got := readBuildInfo().Commit; got != "abc1234" {
		t.Errorf("Commit = %q, want abc1234", got)
	}
}
