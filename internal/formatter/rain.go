// internal/formatter/rain.go
package formatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"weather-alert-bot/internal/types"
	"weather-alert-bot/internal/weather"
)

// RainOptions - окно и пороги проверки ливней
type RainOptions struct {
	Lookahead time.Duration
	MinPop    int // минимальная вероятность осадков, %
}

// QualifyingHours возвращает часы в окне [FetchedAt, FetchedAt+Lookahead]
// с интенсивностью от умеренного дождя, в хронологическом порядке.
func QualifyingHours(snap *weather.Snapshot, opts RainOptions) []weather.HourlyEntry {
	from := snap.FetchedAt
	to := from.Add(opts.Lookahead)

	var hours []weather.HourlyEntry
	for _, h := range snap.Hourly {
		if h.Time.Before(from) || h.Time.After(to) {
			continue
		}
		if h.Pop < opts.MinPop || !h.Intensity.AtLeast(weather.IntensityModerate) {
			continue
		}
		hours = append(hours, h)
	}

	sort.SliceStable(hours, func(i, j int) bool {
		return hours[i].Time.Before(hours[j].Time)
	})
	return hours
}

// FormatRainAlert возвращает оповещение о сильном дожде.
// ok == false, если в окне нет ни одного подходящего часа.
func FormatRainAlert(snap *weather.Snapshot, name string, opts RainOptions) (types.Message, bool) {
	hours := QualifyingHours(snap, opts)
	if len(hours) == 0 {
		return types.Message{}, false
	}

	loc := snap.FetchedAt.Location()
	lines := make([]string, 0, len(hours))
	for _, h := range hours {
		lines = append(lines, HourlyLine(h, loc))
	}

	return types.Message{
		Kind:  types.KindRain,
		Level: types.LevelWarning,
		Title: fmt.Sprintf("⚠️ 预计 %s 有强降雨，请注意", hours[0].Time.In(loc).Format("15:04")),
		Body:  "📍 " + name + sectionSeparator + "💧 **强降雨详情**  \n" + strings.Join(lines, "  \n"),
	}, true
}

// HourlyLine - строка почасового прогноза "∙ 15:00 | 中雨 | 降水概率 90%"
func HourlyLine(h weather.HourlyEntry, loc *time.Location) string {
	return fmt.Sprintf("∙ %s | %s | 降水概率 %d%%", h.Time.In(loc).Format("15:04"), h.Text, h.Pop)
}
