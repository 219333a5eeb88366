// internal/notifier/errors.go
package notifier

import (
	"errors"
	"fmt"
)

// ErrRateLimited - превышена квота отправок за окно
var ErrRateLimited = errors.New("notification rate limit exceeded")

// NotifyError - ошибка доставки уведомления. Не фатальна.
type NotifyError struct {
	Channel    string
	StatusCode int // HTTP статус, 0 если ответа не было
	Code       int // код ошибки из тела ответа
	Err        error
}

func (e *NotifyError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("notify %s: status %d: %v", e.Channel, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("notify %s: %v", e.Channel, e.Err)
	case e.Code != 0:
		return fmt.Sprintf("notify %s: status %d, code %d", e.Channel, e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("notify %s: status %d", e.Channel, e.StatusCode)
	}
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}
