// internal/weather/types.go
package weather

import (
	"strings"
	"time"
)

// Intensity - категория интенсивности осадков, упорядочена по возрастанию
type Intensity int

const (
	IntensityNone Intensity = iota
	IntensityLight
	IntensityModerate
	IntensityHeavy
	IntensityStorm
)

func (i Intensity) String() string {
	switch i {
	case IntensityNone:
		return "none"
	case IntensityLight:
		return "light"
	case IntensityModerate:
		return "moderate"
	case IntensityHeavy:
		return "heavy"
	case IntensityStorm:
		return "storm"
	default:
		return "unknown"
	}
}

// AtLeast сравнивает категории
func (i Intensity) AtLeast(other Intensity) bool {
	return i >= other
}

// SevereFlag - набор признаков опасной погоды
type SevereFlag uint16

const (
	FlagSnow SevereFlag = 1 << iota
	FlagBlizzard
	FlagHail
	FlagTyphoon
	FlagSandstorm
	FlagFog
	FlagHaze
	FlagFreezingRain
	FlagSleet
	FlagRainstorm
	// FlagWarning - действует официальное предупреждение без отдельной категории
	FlagWarning
)

var flagNames = []struct {
	flag SevereFlag
	name string
}{
	{FlagSnow, "snow"},
	{FlagBlizzard, "blizzard"},
	{FlagHail, "hail"},
	{FlagTyphoon, "typhoon"},
	{FlagSandstorm, "sandstorm"},
	{FlagFog, "fog"},
	{FlagHaze, "haze"},
	{FlagFreezingRain, "freezing_rain"},
	{FlagSleet, "sleet"},
	{FlagRainstorm, "rainstorm"},
	{FlagWarning, "warning"},
}

// Has проверяет, что установлены все биты other
func (f SevereFlag) Has(other SevereFlag) bool {
	return other != 0 && f&other == other
}

// Any - установлен хотя бы один признак
func (f SevereFlag) Any() bool {
	return f != 0
}

func (f SevereFlag) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// Current - текущие условия
type Current struct {
	ObservedAt time.Time
	Temp       float64
	Text       string
	Icon       string
	Humidity   int
	WindDir    string
	WindScale  string
}

// HourlyEntry - одна строка почасового прогноза
type HourlyEntry struct {
	Time      time.Time
	Text      string
	Icon      string
	Intensity Intensity
	Pop       int     // вероятность осадков, %
	Precip    float64 // мм
	Temp      float64
}

// DailyEntry - прогноз на один день
type DailyEntry struct {
	Date         time.Time
	TempMin      float64
	TempMax      float64
	TextDay      string
	TextNight    string
	IconDay      string
	IconNight    string
	WindDirDay   string
	WindScaleDay string
	Humidity     int
	Precip       float64
	Intensity    Intensity
	Shower       bool
	Flags        SevereFlag
}

// Summary возвращает "день" или "день转ночь"
func (d DailyEntry) Summary() string {
	if d.TextNight == "" || d.TextDay == d.TextNight {
		return d.TextDay
	}
	return d.TextDay + "转" + d.TextNight
}

// Warning - официальное погодное предупреждение
type Warning struct {
	ID        string
	Title     string
	Text      string
	Type      string
	TypeName  string
	Severity  string
	StartTime time.Time
	EndTime   time.Time
	Flags     SevereFlag
}

// Snapshot - результат одного опроса API. После создания не изменяется.
type Snapshot struct {
	FetchedAt time.Time
	Current   Current
	Hourly    []HourlyEntry
	Daily     []DailyEntry
	Warnings  []Warning
}
