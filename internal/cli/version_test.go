package cli

import (
	"bytes"
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func withVersion(t *testing.T, v, c, d string) {
	t.Helper()
	origV, origC, origD := version, commit, date
	t.Cleanup(func() { version, commit, date = origV, origC, origD })
	version, commit, date = v, c, d
}

func TestResolveVersionInfo_Ldflags(t *testing.T) {
	withVersion(t, "1.4.0", "a1b2c3d", "2026-05-01")

	v, c, d := resolveVersionInfo()
	if v != "1.4.0" || c != "a1b2c3d" || d != "2026-05-01" {
		t.Errorf("got %s %s %s", v, c, d)
	}
}

func TestFromBuildInfo(t *testing.T) {
	withVersion(t, "dev", "unknown", "unknown")

	v, c, d := fromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Version: "v0.9.2"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-04-30T12:00:00Z"},
		},
	})
	if v != "v0.9.2" || c != "0123456789ab" || d != "2026-04-30T12:00:00Z" {
		t.Errorf("got %s %s %s", v, c, d)
	}
}

func TestFromBuildInfo_DevelBuild(t *testing.T) {
	withVersion(t, "dev", "unknown", "unknown")

	v, c, _ := fromBuildInfo(&debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}},
	})
	if v != "dev" || c != "abc" {
		t.Errorf("got %s %s", v, c)
	}

	if v, _, _ := fromBuildInfo(nil); v != "dev" {
		t.Errorf("nil build info: version %q", v)
	}
}

func TestWriteVersionInfo(t *testing.T) {
	withVersion(t, "1.4.0", "a1b2c3d", "2026-05-01")

	var out, banner bytes.Buffer
	writeVersionInfo(&out, &banner)

	want := "erpsync 1.4.0 (a1b2c3d, 2026-05-01) " + runtime.GOOS + "/" + runtime.GOARCH + "\n"
	if out.String() != want {
		t.Errorf("stdout = %q, want %q", out.String(), want)
	}
	if !strings.Contains(banner.String(), "frePPLe") {
		t.Errorf("banner = %q", banner.String())
	}
}
