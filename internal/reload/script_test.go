package reload

import (
	"strings"
	"testing"
	"time"
)

func TestScriptDefaults(t *testing.T) {
	s := Script(ScriptOptions{})

	if !strings.HasPrefix(s, "<script>") || !strings.HasSuffix(s, "</script>") {
		t.Fatalf("Script() is not wrapped in a script element")
	}
	if strings.Contains(s, "__LIVEDEV_CONFIG__") {
		t.Error("config placeholder was not replaced")
	}
	for _, want := range []string{
		`"transport":"websocket"`,
		`"path":"/__livedev/ws"`,
		`"statusPath":"/__livedev/status"`,
		`"delay":2500`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Script() missing %s", want)
		}
	}
	if strings.Count(s, "</script>") != 1 {
		t.Error("client body must not close the script element early")
	}
}

func TestScriptPoll(t *testing.T) {
	s := Script(ScriptOptions{Transport: TransportPoll, ReconnectDelay: time.Second})

	for _, want := range []string{
		`"transport":"poll"`,
		`"path":"/__reload_poll"`,
		`"delay":1000`,
		`"seqHeader":"X-Livedev-Seq"`,
		"since=",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Script() missing %s", want)
		}
	}
}

func TestScriptCustomPath(t *testing.T) {
	s := Script(ScriptOptions{Path: "/custom/ws"})
	if !strings.Contains(s, `"path":"/custom/ws"`) {
		t.Error("custom path not used")
	}
}
