// internal/weather/classify.go
package weather

import (
	"strconv"
	"strings"
)

// Коды иконок QWeather: https://dev.qweather.com/docs/resource/icons/
var iconIntensity = map[int]Intensity{
	300: IntensityLight, // 阵雨
	302: IntensityLight, // 雷阵雨
	305: IntensityLight, // 小雨
	309: IntensityLight, // 毛毛雨
	313: IntensityLight, // 冻雨
	350: IntensityLight,
	399: IntensityLight, // 雨

	304: IntensityModerate, // 雷阵雨伴有冰雹
	306: IntensityModerate, // 中雨
	314: IntensityModerate, // 小到中雨

	301: IntensityHeavy, // 强阵雨
	303: IntensityHeavy, // 强雷阵雨
	307: IntensityHeavy, // 大雨
	315: IntensityHeavy, // 中到大雨
	351: IntensityHeavy,

	308: IntensityStorm, // 极端降雨
	310: IntensityStorm, // 暴雨
	311: IntensityStorm, // 大暴雨
	312: IntensityStorm, // 特大暴雨
	316: IntensityStorm,
	317: IntensityStorm,
	318: IntensityStorm,
}

var iconFlags = map[int]SevereFlag{
	304: FlagHail,
	313: FlagFreezingRain,

	400: FlagSnow,
	401: FlagSnow,
	402: FlagSnow,
	403: FlagSnow | FlagBlizzard,
	404: FlagSleet,
	405: FlagSleet,
	406: FlagSleet,
	407: FlagSnow,
	408: FlagSnow,
	409: FlagSnow,
	410: FlagSnow | FlagBlizzard,
	456: FlagSleet,
	457: FlagSnow,
	499: FlagSnow,

	500: FlagFog, // 薄雾
	501: FlagFog,
	509: FlagFog,
	510: FlagFog,
	514: FlagFog,
	515: FlagFog,

	502: FlagHaze,
	511: FlagHaze,
	512: FlagHaze,
	513: FlagHaze,

	507: FlagSandstorm,
	508: FlagSandstorm,
}

// Порядок важен: более сильные формулировки проверяются первыми
var textIntensity = []struct {
	keyword   string
	intensity Intensity
}{
	{"极端降雨", IntensityStorm},
	{"暴雨", IntensityStorm},
	{"extreme rain", IntensityStorm},
	{"torrential", IntensityStorm},
	{"rainstorm", IntensityStorm},
	{"大雨", IntensityHeavy},
	{"强阵雨", IntensityHeavy},
	{"heavy rain", IntensityHeavy},
	{"heavy shower", IntensityHeavy},
	{"中雨", IntensityModerate},
	{"moderate rain", IntensityModerate},
	{"雨", IntensityLight},
	{"drizzle", IntensityLight},
	{"shower", IntensityLight},
	{"rain", IntensityLight},
}

var textFlags = []struct {
	keyword string
	flag    SevereFlag
}{
	{"冰雹", FlagHail},
	{"台风", FlagTyphoon},
	{"暴雪", FlagBlizzard | FlagSnow},
	{"雨夹雪", FlagSleet},
	{"雪", FlagSnow},
	{"沙尘暴", FlagSandstorm},
	{"雾", FlagFog},
	{"霾", FlagHaze},
	{"冻雨", FlagFreezingRain},
	{"hail", FlagHail},
	{"typhoon", FlagTyphoon},
	{"blizzard", FlagBlizzard | FlagSnow},
	{"sleet", FlagSleet},
	{"snow", FlagSnow},
	{"sandstorm", FlagSandstorm},
	{"fog", FlagFog},
	{"haze", FlagHaze},
	{"freezing rain", FlagFreezingRain},
}

// Коды типов предупреждений QWeather
var warningTypeFlags = map[string]SevereFlag{
	"1001": FlagTyphoon,
	"1003": FlagRainstorm,
	"1004": FlagBlizzard | FlagSnow,
	"1007": FlagSandstorm,
	"1011": FlagHail,
	"1013": FlagFog,
	"1014": FlagHaze,
}

// knownIcon - код принадлежит документированным диапазонам QWeather.
// 999 ("未知") и пустые значения отправляют классификацию на текст.
func knownIcon(icon string) (int, bool) {
	code, err := strconv.Atoi(strings.TrimSpace(icon))
	if err != nil {
		return 0, false
	}
	switch {
	case code >= 100 && code <= 199,
		code >= 300 && code <= 399,
		code >= 400 && code <= 499,
		code >= 500 && code <= 515,
		code == 900, code == 901:
		return code, true
	}
	return 0, false
}

// ClassifyIntensity определяет интенсивность осадков по коду иконки,
// при неизвестной иконке - по тексту условий.
func ClassifyIntensity(icon, text string) Intensity {
	if code, ok := knownIcon(icon); ok {
		return iconIntensity[code]
	}
	lower := strings.ToLower(text)
	for _, k := range textIntensity {
		if strings.Contains(lower, k.keyword) {
			return k.intensity
		}
	}
	return IntensityNone
}

// ClassifySevere определяет признаки опасной погоды по иконке или тексту
func ClassifySevere(icon, text string) SevereFlag {
	if code, ok := knownIcon(icon); ok {
		return iconFlags[code]
	}
	return severeFromText(text)
}

// IsShower - ливневые осадки (阵雨)
func IsShower(icon, text string) bool {
	if code, ok := knownIcon(icon); ok {
		switch code {
		case 300, 301, 302, 303, 304, 350, 351:
			return true
		}
		return false
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, "阵雨") || strings.Contains(lower, "shower")
}

func severeFromText(text string) SevereFlag {
	lower := strings.ToLower(text)
	var flags SevereFlag
	for _, k := range textFlags {
		if strings.Contains(lower, k.keyword) {
			flags |= k.flag
		}
	}
	return flags
}

func classifyWarning(typ, typeName, title string) SevereFlag {
	flags := warningTypeFlags[typ]
	if flags == 0 {
		text := typeName + " " + title
		flags = severeFromText(text)
		if strings.Contains(text, "暴雨") || strings.Contains(strings.ToLower(text), "rainstorm") {
			flags |= FlagRainstorm
		}
	}
	return flags | FlagWarning
}
