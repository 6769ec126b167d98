package buildinfo

import (
	"runtime/debug"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	type stamp struct{ version, commit, date string }
	tests := []struct {
		name  string
		start stamp
		info  debug.BuildInfo
		want  stamp
	}{
		{
			name:  "unstamped install",
			start: stamp{"dev", "none", "unknown"},
			info: debug.BuildInfo{
				Main:     debug.Module{Version: "v0.3.0"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef0123"},
					{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
				},
			},
			want: stamp{"v0.3.0", "0123456789ab", "2026-10-01T12:00:00Z"},
		},
		{
			name:  "ldflags win",
			start: stamp{"v1.0.0", "abc", "today"},
			info: debug.BuildInfo{
				Main:     debug.Module{Version: "v0.3.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fff"}},
			},
			want: stamp{"v1.0.0", "abc", "today"},
		},
		{
			name:  "local checkout",
			start: stamp{"dev", "none", "unknown"},
			info:  debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want:  stamp{"dev", "none", "unknown"},
		},
	}

	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit, Date = tt.start.version, tt.start.commit, tt.start.date
			fromBuildInfo(&tt.info)
			if got := (stamp{Version, Commit, Date}); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	defer func(v string) { Version = v }(Version)
	resolve()
	Version = "v9.9.9"
	if got := UserAgent(); got != "vibetiles/v9.9.9" {
		t.Errorf("UserAgent() = %q", got)
	}
}
