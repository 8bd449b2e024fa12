package protocol

import "testing"

// TestConfigFinishID 测试配置结束包 ID 随版本变化
func TestConfigFinishID(t *testing.T) {
	tests := []struct {
		version ClientVersion
		want    int32
	}{
		{V1_20_2, 0x02},
		{V1_20_3, 0x02},
		{V1_20_5, 0x03},
		{V1_21, 0x03},
		{LatestRelease, 0x03},
	}
	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			if got := ConfigFinishID(tt.version); got != tt.want {
				t.Errorf("ConfigFinishID(%s) = 0x%02x, 期望 0x%02x", tt.version, got, tt.want)
			}
		})
	}
}

// TestHasConfigurationPhase 测试配置阶段从 1.20.2 开始
func TestHasConfigurationPhase(t *testing.T) {
	tests := []struct {
		version ClientVersion
		want    bool
	}{
		{V1_8, false},
		{V1_19_4, false},
		{V1_20_2, true},
		{V1_21_4, true},
	}
	for _, tt := range tests {
		if got := HasConfigurationPhase(tt.version); got != tt.want {
			t.Errorf("HasConfigurationPhase(%s) = %v, 期望 %v", tt.version, got, tt.want)
		}
	}
}
