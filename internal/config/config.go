// config.go
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // часовые пояса без системной базы

	"github.com/joho/godotenv"
)

// ConsoleWebhook - адрес вебхука для пробного запуска без отправки в чат
const ConsoleWebhook = "console://"

// Ключи файла конфигурации. Префикс ключа - секция.
const (
	KeyWebhookURL    = "API_WEBHOOK_URL"
	KeyWebhookSecret = "API_WEBHOOK_SECRET"
	KeyQWeatherKey   = "API_QWEATHER_KEY"
	KeyAPIHost       = "API_HOST"

	KeyCoordinates  = "LOCATION_COORDINATES"
	KeyLocationName = "LOCATION_NAME"

	KeyDailyPushHour       = "SETTINGS_DAILY_PUSH_HOUR"
	KeyDailyPushMinute     = "SETTINGS_DAILY_PUSH_MINUTE"
	KeyCheckInterval       = "SETTINGS_CHECK_INTERVAL_MINUTES"
	KeyTimezone            = "SETTINGS_TIMEZONE"
	KeyRainLookahead       = "SETTINGS_RAIN_LOOKAHEAD_HOURS"
	KeyRainThresholdPop    = "SETTINGS_RAIN_THRESHOLD_POP"
	KeyRainThresholdPrecip = "SETTINGS_RAIN_THRESHOLD_PRECIP"
	KeyRainAlertCooldown   = "SETTINGS_RAIN_ALERT_COOLDOWN_MINUTES"
	KeyRequestTimeout      = "SETTINGS_REQUEST_TIMEOUT_SECONDS"
	KeyRestartDelay        = "SETTINGS_RESTART_DELAY_SECONDS"

	KeyLogLevel      = "LOG_LEVEL"
	KeyLogFile       = "LOG_FILE"
	KeyLogMaxSize    = "LOG_MAX_SIZE"
	KeyLogMaxBackups = "LOG_MAX_BACKUPS"

	KeyRedisEnabled    = "REDIS_ENABLED"
	KeyRedisHost       = "REDIS_HOST"
	KeyRedisPort       = "REDIS_PORT"
	KeyRedisPassword   = "REDIS_PASSWORD"
	KeyRedisDB         = "REDIS_DB"
	KeyNotifyRateLimit = "NOTIFY_RATE_LIMIT_PER_MINUTE"

	KeyJournalEnabled = "JOURNAL_ENABLED"
	KeyJournalDriver  = "JOURNAL_DRIVER"
	KeyJournalDSN     = "JOURNAL_DSN"

	KeyMQTTBroker   = "MQTT_BROKER"
	KeyMQTTPort     = "MQTT_PORT"
	KeyMQTTTopic    = "MQTT_TOPIC"
	KeyMQTTClientID = "MQTT_CLIENT_ID"

	KeyHTTPEnabled = "HTTP_ENABLED"
	KeyHTTPAddr    = "HTTP_ADDR"
)

// APISettings - секция API
type APISettings struct {
	WebhookURL    string
	WebhookSecret string
	QWeatherKey   string
	Host          string
}

// LocationSettings - секция Location
type LocationSettings struct {
	Longitude float64
	Latitude  float64
	Name      string
}

// Coordinates возвращает координаты в формате "долгота,широта"
func (l LocationSettings) Coordinates() string {
	return formatFloat(l.Longitude) + "," + formatFloat(l.Latitude)
}

// MonitorSettings - секция Settings: расписание и пороги
type MonitorSettings struct {
	DailyPushHour            int
	DailyPushMinute          int
	CheckIntervalMinutes     int
	Timezone                 string
	RainLookaheadHours       int
	RainThresholdPop         int
	RainThresholdPrecip      float64
	RainAlertCooldownMinutes int
	RequestTimeoutSeconds    int
	RestartDelaySeconds      int

	loc *time.Location
}

func (m MonitorSettings) CheckInterval() time.Duration {
	return time.Duration(m.CheckIntervalMinutes) * time.Minute
}

func (m MonitorSettings) RainLookahead() time.Duration {
	return time.Duration(m.RainLookaheadHours) * time.Hour
}

func (m MonitorSettings) RainAlertCooldown() time.Duration {
	return time.Duration(m.RainAlertCooldownMinutes) * time.Minute
}

func (m MonitorSettings) RequestTimeout() time.Duration {
	return time.Duration(m.RequestTimeoutSeconds) * time.Second
}

func (m MonitorSettings) RestartDelay() time.Duration {
	return time.Duration(m.RestartDelaySeconds) * time.Second
}

// Location возвращает часовой пояс расписания
func (m MonitorSettings) Location() *time.Location {
	if m.loc == nil {
		return time.UTC
	}
	return m.loc
}

type LogSettings struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type RedisSettings struct {
	Enabled            bool
	Host               string
	Port               int
	Password           string
	DB                 int
	RateLimitPerMinute int
}

// Addr возвращает адрес host:port
func (r RedisSettings) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JournalSettings struct {
	Enabled bool
	Driver  string
	DSN     string
}

type MQTTSettings struct {
	Broker   string
	Port     int
	Topic    string
	ClientID string
}

// Enabled - зеркалирование в MQTT включается заданием брокера
func (m MQTTSettings) Enabled() bool {
	return m.Broker != ""
}

type HTTPSettings struct {
	Enabled bool
	Addr    string
}

// Settings - неизменяемая проверенная конфигурация процесса
type Settings struct {
	API      APISettings
	Location LocationSettings
	Monitor  MonitorSettings
	Log      LogSettings
	Redis    RedisSettings
	Journal  JournalSettings
	MQTT     MQTTSettings
	HTTP     HTTPSettings
}

// Load читает и проверяет файл конфигурации
func Load(path string) (Settings, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return Settings{}, &Error{Path: path, Err: err}
	}

	s, err := FromValues(values)
	if err != nil {
		var cfgErr *Error
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}
		return Settings{}, err
	}
	return s, nil
}

// FromValues строит Settings из пар ключ-значение
func FromValues(values map[string]string) (Settings, error) {
	p := &parser{values: values}

	s := Settings{
		API: APISettings{
			WebhookURL:    p.webhookURL(KeyWebhookURL),
			WebhookSecret: p.optionalString(KeyWebhookSecret, ""),
			QWeatherKey:   p.requiredString(KeyQWeatherKey),
			Host:          p.httpURL(KeyAPIHost),
		},
		Monitor: MonitorSettings{
			DailyPushHour:         p.requiredInt(KeyDailyPushHour, 0, 23),
			DailyPushMinute:       p.requiredInt(KeyDailyPushMinute, 0, 59),
			CheckIntervalMinutes:  p.requiredInt(KeyCheckInterval, 1, 24*60),
			Timezone:              p.optionalString(KeyTimezone, "Asia/Shanghai"),
			RainLookaheadHours:    p.optionalInt(KeyRainLookahead, 6, 1, 24),
			RainThresholdPop:      p.optionalInt(KeyRainThresholdPop, 0, 0, 100),
			RainThresholdPrecip:   p.optionalFloat(KeyRainThresholdPrecip, 5.0, 0, math.MaxFloat64),
			RequestTimeoutSeconds: p.optionalInt(KeyRequestTimeout, 10, 1, 300),
			RestartDelaySeconds:   p.optionalInt(KeyRestartDelay, 5, 0, 3600),
		},
		Log: LogSettings{
			Level:      p.oneOf(KeyLogLevel, "info", "debug", "info", "warn", "warning", "error"),
			File:       p.optionalString(KeyLogFile, "weather_monitor.log"),
			MaxSizeMB:  p.optionalInt(KeyLogMaxSize, 1, 1, 1024),
			MaxBackups: p.optionalInt(KeyLogMaxBackups, 5, 0, 100),
		},
		Redis: RedisSettings{
			Enabled:            p.optionalBool(KeyRedisEnabled, false),
			Host:               p.optionalString(KeyRedisHost, "localhost"),
			Port:               p.optionalInt(KeyRedisPort, 6379, 1, 65535),
			Password:           p.optionalString(KeyRedisPassword, ""),
			DB:                 p.optionalInt(KeyRedisDB, 0, 0, 15),
			RateLimitPerMinute: p.optionalInt(KeyNotifyRateLimit, 100, 1, 10000),
		},
		Journal: JournalSettings{
			Enabled: p.optionalBool(KeyJournalEnabled, false),
			Driver:  p.oneOf(KeyJournalDriver, "sqlite3", "sqlite3", "postgres"),
			DSN:     p.optionalString(KeyJournalDSN, "weather_monitor.db"),
		},
		MQTT: MQTTSettings{
			Broker:   p.optionalString(KeyMQTTBroker, ""),
			Port:     p.optionalInt(KeyMQTTPort, 1883, 1, 65535),
			Topic:    p.optionalString(KeyMQTTTopic, "weather/notifications"),
			ClientID: p.optionalString(KeyMQTTClientID, "weather-alert-bot"),
		},
		HTTP: HTTPSettings{
			Enabled: p.optionalBool(KeyHTTPEnabled, false),
			Addr:    p.optionalString(KeyHTTPAddr, ":8080"),
		},
	}

	s.Location.Longitude, s.Location.Latitude = p.coordinates(KeyCoordinates)
	s.Location.Name = p.requiredString(KeyLocationName)

	// По умолчанию не чаще одного оповещения за интервал проверки
	s.Monitor.RainAlertCooldownMinutes = p.optionalInt(KeyRainAlertCooldown, s.Monitor.CheckIntervalMinutes, 0, 7*24*60)

	loc, err := time.LoadLocation(s.Monitor.Timezone)
	if err != nil {
		p.problem(KeyTimezone, "unknown timezone %q", s.Monitor.Timezone)
	} else {
		s.Monitor.loc = loc
	}

	if len(p.problems) > 0 {
		return Settings{}, &Error{Problems: p.problems}
	}
	return s, nil
}

// Values сериализует настройки обратно в пары ключ-значение
func (s Settings) Values() map[string]string {
	return map[string]string{
		KeyWebhookURL:    s.API.WebhookURL,
		KeyWebhookSecret: s.API.WebhookSecret,
		KeyQWeatherKey:   s.API.QWeatherKey,
		KeyAPIHost:       s.API.Host,

		KeyCoordinates:  s.Location.Coordinates(),
		KeyLocationName: s.Location.Name,

		KeyDailyPushHour:       strconv.Itoa(s.Monitor.DailyPushHour),
		KeyDailyPushMinute:     strconv.Itoa(s.Monitor.DailyPushMinute),
		KeyCheckInterval:       strconv.Itoa(s.Monitor.CheckIntervalMinutes),
		KeyTimezone:            s.Monitor.Timezone,
		KeyRainLookahead:       strconv.Itoa(s.Monitor.RainLookaheadHours),
		KeyRainThresholdPop:    strconv.Itoa(s.Monitor.RainThresholdPop),
		KeyRainThresholdPrecip: formatFloat(s.Monitor.RainThresholdPrecip),
		KeyRainAlertCooldown:   strconv.Itoa(s.Monitor.RainAlertCooldownMinutes),
		KeyRequestTimeout:      strconv.Itoa(s.Monitor.RequestTimeoutSeconds),
		KeyRestartDelay:        strconv.Itoa(s.Monitor.RestartDelaySeconds),

		KeyLogLevel:      s.Log.Level,
		KeyLogFile:       s.Log.File,
		KeyLogMaxSize:    strconv.Itoa(s.Log.MaxSizeMB),
		KeyLogMaxBackups: strconv.Itoa(s.Log.MaxBackups),

		KeyRedisEnabled:    strconv.FormatBool(s.Redis.Enabled),
		KeyRedisHost:       s.Redis.Host,
		KeyRedisPort:       strconv.Itoa(s.Redis.Port),
		KeyRedisPassword:   s.Redis.Password,
		KeyRedisDB:         strconv.Itoa(s.Redis.DB),
		KeyNotifyRateLimit: strconv.Itoa(s.Redis.RateLimitPerMinute),

		KeyJournalEnabled: strconv.FormatBool(s.Journal.Enabled),
		KeyJournalDriver:  s.Journal.Driver,
		KeyJournalDSN:     s.Journal.DSN,

		KeyMQTTBroker:   s.MQTT.Broker,
		KeyMQTTPort:     strconv.Itoa(s.MQTT.Port),
		KeyMQTTTopic:    s.MQTT.Topic,
		KeyMQTTClientID: s.MQTT.ClientID,

		KeyHTTPEnabled: strconv.FormatBool(s.HTTP.Enabled),
		KeyHTTPAddr:    s.HTTP.Addr,
	}
}

// Write сохраняет настройки в файл в том же формате, что читает Load
func Write(path string, s Settings) error {
	return godotenv.Write(s.Values(), path)
}

// parser собирает все ошибки, а не только первую
type parser struct {
	values   map[string]string
	problems []string
}

func (p *parser) problem(key, format string, args ...interface{}) {
	p.problems = append(p.problems, key+": "+fmt.Sprintf(format, args...))
}

func (p *parser) lookup(key string) (string, bool) {
	v, ok := p.values[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) requiredString(key string) string {
	v, ok := p.lookup(key)
	if !ok {
		p.problem(key, "missing required key")
	}
	return v
}

func (p *parser) optionalString(key, def string) string {
	if v, ok := p.lookup(key); ok {
		return v
	}
	return def
}

func (p *parser) oneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(p.optionalString(key, def))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	p.problem(key, "invalid value %q (allowed: %s)", v, strings.Join(allowed, ", "))
	return def
}

func (p *parser) parseInt(key, raw string, min, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.problem(key, "invalid integer %q", raw)
		return 0
	}
	if n < min || n > max {
		p.problem(key, "%d out of range %d-%d", n, min, max)
	}
	return n
}

func (p *parser) requiredInt(key string, min, max int) int {
	v, ok := p.lookup(key)
	if !ok {
		p.problem(key, "missing required key")
		return 0
	}
	return p.parseInt(key, v, min, max)
}

func (p *parser) optionalInt(key string, def, min, max int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	return p.parseInt(key, v, min, max)
}

func (p *parser) optionalFloat(key string, def, min, max float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.problem(key, "invalid number %q", v)
		return def
	}
	if f < min || f > max {
		p.problem(key, "%s out of range", v)
	}
	return f
}

func (p *parser) optionalBool(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.problem(key, "invalid boolean %q", v)
		return def
	}
	return b
}

func (p *parser) httpURL(key string) string {
	v := p.requiredString(key)
	if v == "" {
		return ""
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		p.problem(key, "invalid http(s) URL %q", v)
		return v
	}
	return strings.TrimRight(v, "/")
}

func (p *parser) webhookURL(key string) string {
	v, ok := p.lookup(key)
	if ok && v == ConsoleWebhook {
		return v
	}
	return p.httpURL(key)
}

func (p *parser) coordinates(key string) (lon, lat float64) {
	v := p.requiredString(key)
	if v == "" {
		return 0, 0
	}

	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		p.problem(key, "expected \"longitude,latitude\", got %q", v)
		return 0, 0
	}

	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	switch {
	case errLon != nil || errLat != nil:
		p.problem(key, "invalid coordinates %q", v)
	case lon < -180 || lon > 180:
		p.problem(key, "longitude %v out of range -180..180", lon)
	case lat < -90 || lat > 90:
		p.problem(key, "latitude %v out of range -90..90", lat)
	}
	return lon, lat
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
