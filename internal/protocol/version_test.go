package protocol

import (
	"errors"
	"slices"
	"testing"
)

func TestClientVersionString(t *testing.T) {
	tests := []struct {
		v    ClientVersion
		want string
	}{
		{Unknown, "unknown"},
		{V1_8, "1.8"},
		{V1_20_2, "1.20.2"},
		{ClientVersion(771), "protocol 771"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("ClientVersion(%d).String() = %q, 期望 %q", int32(tt.v), got, tt.want)
		}
	}
}

func TestClientVersionCompare(t *testing.T) {
	if !V1_21.IsNewerThanOrEquals(V1_20_2) {
		t.Error("1.21 应不早于 1.20.2")
	}
	if !V1_20_2.IsNewerThanOrEquals(V1_20_2) {
		t.Error("版本应不早于自身")
	}
	if !V1_16_5.IsOlderThan(V1_17) {
		t.Error("1.16.5 应早于 1.17")
	}
	if Unknown.IsKnown() || !V1_8.IsKnown() {
		t.Error("IsKnown() 结果错误")
	}
}

func TestParseClientVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    ClientVersion
		wantErr bool
	}{
		{"1.20.2", V1_20_2, false},
		{"774", V1_21_11, false},
		{"771", ClientVersion(771), false},
		{" 1.8 ", V1_8, false},
		{"1.99", Unknown, true},
		{"-3", Unknown, true},
	}
	for _, tt := range tests {
		got, err := ParseClientVersion(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownVersion) {
				t.Errorf("ParseClientVersion(%q) error = %v, 期望 ErrUnknownVersion", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseClientVersion(%q) = %v, %v, 期望 %v", tt.input, got, err, tt.want)
		}
	}
}

func TestKnownReleasesSorted(t *testing.T) {
	releases := KnownReleases()
	if !slices.IsSorted(releases) {
		t.Errorf("KnownReleases() 未排序: %v", releases)
	}
	if releases[len(releases)-1] != LatestRelease {
		t.Errorf("最后一个版本 = %v, 期望 %v", releases[len(releases)-1], LatestRelease)
	}
}
