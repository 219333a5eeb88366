// internal/types/message.go
package types

// MessageKind - тип уведомления
type MessageKind string

const (
	KindDaily MessageKind = "daily"
	KindRain  MessageKind = "rain"
	KindTest  MessageKind = "test"
)

// MessageLevel определяет цвет карточки в чате
type MessageLevel string

const (
	LevelInfo    MessageLevel = "info"
	LevelWarning MessageLevel = "warning"
	LevelTest    MessageLevel = "test"
)

// Message - готовое к отправке уведомление.
// Body уже размечен в lark markdown.
type Message struct {
	Kind  MessageKind  `json:"kind"`
	Level MessageLevel `json:"level"`
	Title string       `json:"title"`
	Body  string       `json:"body"`
}
