// internal/formatter/test_message.go
package formatter

import "weather-alert-bot/internal/types"

// TestMessage - фиксированный пример со всеми элементами разметки для проверки канала
func TestMessage(name string) types.Message {
	daily := "📅 **今日天气 · 晴转多云**  \n" +
		"🌡 气温：22 ~ 34℃  \n" +
		"💨 风力：南风 4级  \n" +
		"💧 湿度：80%"

	rain := "⚠️ **降雨预警 · 预计 15:00 开始**  \n" +
		"∙ 15:00 | 小雨 | 概率 70%  \n" +
		"∙ 16:00 | 中雨 | 概率 90%  \n" +
		"∙ 17:00 | 小雨 | 概率 60%"

	return types.Message{
		Kind:  types.KindTest,
		Level: types.LevelTest,
		Title: "📢【测试】天气及降雨提醒",
		Body:  "📍 " + name + "\n\n" + daily + sectionSeparator + rain,
	}
}
