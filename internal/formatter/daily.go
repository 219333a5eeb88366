// internal/formatter/daily.go
package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"weather-alert-bot/internal/types"
	"weather-alert-bot/internal/weather"
)

const (
	titleDaily       = "📢 今日天气"
	titleDailySevere = "⚠️ 今日天气-恶劣天气预警"

	sectionSeparator = "\n\n---\n"
)

// DailyOptions - пороги ежедневной сводки
type DailyOptions struct {
	// RainThresholdPrecip - суточные осадки (мм), при которых день с дождем попадает в напоминание
	RainThresholdPrecip float64
}

var dayPrefixes = map[int]string{0: "今天", 1: "明天", 2: "后天"}

// Суффикс заголовка по набору дождливых дней (0 - сегодня)
var rainSuffixes = map[[3]bool]string{
	{true, true, true}:   "-未来三天有雨",
	{true, true, false}:  "-今明天有雨",
	{false, true, true}:  "-明后天有雨",
	{true, false, true}:  "-今后天有雨",
	{true, false, false}: "-今天有雨",
	{false, true, false}: "-明天有雨",
	{false, false, true}: "-后天有雨",
}

// FormatDailyForecast собирает ежедневную сводку для точки name
func FormatDailyForecast(snap *weather.Snapshot, name string, opts DailyOptions) types.Message {
	var b strings.Builder
	b.WriteString("📍 " + name + "\n\n")

	var (
		severeLines []string
		rainLines   []string
		severeDays  bool
		rainDays    [3]bool
		anyRain     bool
	)

	if len(snap.Daily) == 0 {
		b.WriteString("📅 **今日天气 · 暂无数据**")
	} else {
		writeToday(&b, snap.Daily[0], snap.Current)
	}

	var upcoming []string
	for _, d := range snap.Daily {
		diff := daysBetween(snap.FetchedAt, d.Date)
		prefix, ok := dayPrefixes[diff]
		if !ok {
			prefix = d.Date.Format("2006-01-02")
		}

		if diff == 1 || diff == 2 {
			upcoming = append(upcoming, fmt.Sprintf("∙ **%s**: %s %s ~ %s℃",
				prefix, d.Summary(), formatNumber(d.TempMin), formatNumber(d.TempMax)))
		}

		if ok && d.Flags.Any() {
			severeDays = true
			severeLines = append(severeLines, fmt.Sprintf("∙ **%s**: %s", prefix, d.Summary()))
		}

		if isRainDay(d, opts.RainThresholdPrecip) {
			rainLines = append(rainLines, fmt.Sprintf("∙ **%s**: %s，预计降水 %smm",
				prefix, d.Summary(), formatNumber(d.Precip)))
			if ok {
				rainDays[diff] = true
				anyRain = true
			}
		}
	}

	if len(upcoming) > 0 {
		b.WriteString(sectionSeparator + "**未来两天**  \n" + strings.Join(upcoming, "  \n"))
	}

	if severeDays {
		for _, w := range snap.Warnings {
			severeLines = append(severeLines, "∙ 🚨 "+w.Title)
		}
		b.WriteString(sectionSeparator + "**恶劣天气提醒**  \n" + strings.Join(severeLines, "\n"))
	}

	if len(rainLines) > 0 {
		b.WriteString(sectionSeparator + "**降雨提醒**  \n" + strings.Join(rainLines, "\n"))
	}

	msg := types.Message{
		Kind:  types.KindDaily,
		Level: types.LevelInfo,
		Title: titleDaily,
		Body:  b.String(),
	}
	switch {
	case severeDays:
		msg.Title = titleDailySevere
		msg.Level = types.LevelWarning
	case anyRain:
		msg.Title = "⚠️ 今日天气" + rainSuffixes[rainDays]
		msg.Level = types.LevelWarning
	}
	return msg
}

func writeToday(b *strings.Builder, today weather.DailyEntry, current weather.Current) {
	fmt.Fprintf(b, "📅 **今日天气 · %s**  \n", today.Summary())
	fmt.Fprintf(b, "🌡 气温：%s ~ %s℃  \n", formatNumber(today.TempMin), formatNumber(today.TempMax))
	if current.Text != "" {
		fmt.Fprintf(b, "🌤 当前：%s℃ %s  \n", formatNumber(current.Temp), current.Text)
	}
	fmt.Fprintf(b, "💨 风力：%s %s级  \n", today.WindDirDay, today.WindScaleDay)
	fmt.Fprintf(b, "💧 湿度：%d%%", today.Humidity)
}

// isRainDay - день попадает в напоминание о дожде
func isRainDay(d weather.DailyEntry, thresholdPrecip float64) bool {
	if d.Intensity.AtLeast(weather.IntensityModerate) || d.Shower {
		return true
	}
	return d.Intensity.AtLeast(weather.IntensityLight) && d.Precip >= thresholdPrecip
}

// daysBetween - разница в календарных днях между from и to
func daysBetween(from, to time.Time) int {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.In(from.Location()).Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	c := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(c.Sub(a).Hours() / 24)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
