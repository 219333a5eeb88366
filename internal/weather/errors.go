// internal/weather/errors.go
package weather

import "fmt"

// APIError - ошибка обращения к QWeather. Не фатальна: итерация пропускается.
type APIError struct {
	Endpoint   string
	StatusCode int    // HTTP статус, 0 если ответа не было
	Code       string // поле code из тела ответа
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("qweather %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("qweather %s: %v", e.Endpoint, e.Err)
	case e.Code != "":
		return fmt.Sprintf("qweather %s: api code %s", e.Endpoint, e.Code)
	default:
		return fmt.Sprintf("qweather %s: status %d", e.Endpoint, e.StatusCode)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}
