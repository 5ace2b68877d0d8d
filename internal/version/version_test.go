package version

import (
	"runtime/debug"
	"testing"
)

func withBuildInfo(t *testing.T, settings ...debug.BuildSetting) {
	t.Helper()
	oldV, oldC, oldB, oldRead := Version, Commit, BuildTime, readBuildInfo
	t.Cleanup(func() { Version, Commit, BuildTime, readBuildInfo = oldV, oldC, oldB, oldRead })
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: settings}, true
	}
}

func TestCurrentFillsDefaults(t *testing.T) {
	withBuildInfo(t)
	Version, Commit, BuildTime = "  ", "", ""
	info := Current()
	if info.Version != "dev" || info.Commit != "unknown" || info.GoVersion == "" {
		t.Fatalf("unexpected defaults %#v", info)
	}
	if UserAgent() != "messagemaster-console/dev" {
		t.Fatalf("unexpected user agent %q", UserAgent())
	}
}

func TestCurrentReadsVCSSettings(t *testing.T) {
	withBuildInfo(t,
		debug.BuildSetting{Key: "vcs.revision", Value: "3f2a9c1d0e4b5a6978"},
		debug.BuildSetting{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"},
	)
	Version, Commit, BuildTime = "1.4.0", "", ""
	info := Current()
	if info.Commit != "3f2a9c1d0e4b5a6978" || info.BuildTime != "2026-03-01T10:00:00Z" || !info.Modified {
		t.Fatalf("unexpected build info %#v", info)
	}
	if UserAgent() != "messagemaster-console/1.4.0 (3f2a9c1)" {
		t.Fatalf("unexpected user agent %q", UserAgent())
	}

	Commit = "abc"
	if Current().Commit != "abc" {
		t.Fatalf("expected ldflags commit to win over build info")
	}
}
