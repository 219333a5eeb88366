package weather

import "testing"

func TestClassifyIntensity(t *testing.T) {
	tests := []struct {
		icon string
		text string
		want Intensity
	}{
		{"100", "晴", IntensityNone},
		{"305", "小雨", IntensityLight},
		{"306", "中雨", IntensityModerate},
		{"314", "小到中雨", IntensityModerate},
		{"307", "大雨", IntensityHeavy},
		{"310", "暴雨", IntensityStorm},
		{"308", "", IntensityStorm},
		// иконка главнее текста
		{"305", "中雨", IntensityLight},
		// неизвестная иконка - разбор текста
		{"", "中到大雨", IntensityHeavy},
		{"999", "中雨", IntensityModerate},
		{"", "Moderate Rain", IntensityModerate},
		{"", "Heavy rain showers", IntensityHeavy},
		{"", "雷阵雨", IntensityLight},
		{"", "多云", IntensityNone},
	}

	for _, tt := range tests {
		t.Run(tt.icon+"/"+tt.text, func(t *testing.T) {
			if got := ClassifyIntensity(tt.icon, tt.text); got != tt.want {
				t.Errorf("ClassifyIntensity(%q, %q) = %v, want %v", tt.icon, tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifySevere(t *testing.T) {
	tests := []struct {
		icon string
		text string
		want SevereFlag
	}{
		{"100", "晴", 0},
		{"306", "中雨", 0},
		{"304", "雷阵雨伴有冰雹", FlagHail},
		{"403", "暴雪", FlagSnow | FlagBlizzard},
		{"404", "雨夹雪", FlagSleet},
		{"513", "严重霾", FlagHaze},
		{"500", "薄雾", FlagFog},
		{"501", "雾", FlagFog},
		{"508", "强沙尘暴", FlagSandstorm},
		{"", "冻雨", FlagFreezingRain},
		{"", "大雾", FlagFog},
		{"", "Blizzard", FlagBlizzard | FlagSnow},
		{"", "多云", 0},
	}

	for _, tt := range tests {
		t.Run(tt.icon+"/"+tt.text, func(t *testing.T) {
			if got := ClassifySevere(tt.icon, tt.text); got != tt.want {
				t.Errorf("ClassifySevere(%q, %q) = %v, want %v", tt.icon, tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyWarning(t *testing.T) {
	if got := classifyWarning("1001", "台风", ""); !got.Has(FlagTyphoon | FlagWarning) {
		t.Errorf("typhoon warning flags = %v", got)
	}
	if got := classifyWarning("", "", "发布暴雨橙色预警"); !got.Has(FlagRainstorm) {
		t.Errorf("rainstorm by title flags = %v", got)
	}
	if got := classifyWarning("1008", "高温", "高温黄色预警"); got != FlagWarning {
		t.Errorf("heat warning flags = %v, want warning only", got)
	}
}

func TestSevereFlagString(t *testing.T) {
	if got := (FlagSnow | FlagFog).String(); got != "snow|fog" {
		t.Errorf("String() = %q", got)
	}
	if got := SevereFlag(0).String(); got != "none" {
		t.Errorf("String() = %q", got)
	}
}
