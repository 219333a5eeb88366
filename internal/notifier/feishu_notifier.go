// internal/notifier/feishu_notifier.go
package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"weather-alert-bot/internal/types"
	"weather-alert-bot/pkg/logger"
)

// FeishuOptions - параметры вебхука Feishu/Lark
type FeishuOptions struct {
	WebhookURL string
	Secret     string // пустой - подпись не добавляется
	Timeout    time.Duration

	HTTPClient *http.Client     // опционально, для тестов
	Now        func() time.Time // опционально, для тестов
}

// FeishuNotifier отправляет интерактивные карточки в чат Feishu
type FeishuNotifier struct {
	counter
	webhookURL string
	secret     string
	httpClient *http.Client
	now        func() time.Time
}

// NewFeishuNotifier создает нотификатор Feishu
func NewFeishuNotifier(opts FeishuOptions) *FeishuNotifier {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &FeishuNotifier{
		webhookURL: opts.WebhookURL,
		secret:     opts.Secret,
		httpClient: httpClient,
		now:        now,
	}
}

type cardText struct {
	Content string `json:"content"`
	Tag     string `json:"tag"`
}

type cardElement struct {
	Tag  string   `json:"tag"`
	Text cardText `json:"text"`
}

type card struct {
	Config struct {
		WideScreenMode bool `json:"wide_screen_mode"`
	} `json:"config"`
	Header struct {
		Template string   `json:"template"`
		Title    cardText `json:"title"`
	} `json:"header"`
	Elements []cardElement `json:"elements"`
}

type feishuPayload struct {
	Timestamp string `json:"timestamp,omitempty"`
	Sign      string `json:"sign,omitempty"`
	MsgType   string `json:"msg_type"`
	Card      card   `json:"card"`
}

// Feishu отвечает либо {"code":0,"msg":"success"}, либо устаревшим {"StatusCode":0}
type feishuResponse struct {
	Code          *int   `json:"code"`
	Msg           string `json:"msg"`
	StatusCode    *int   `json:"StatusCode"`
	StatusMessage string `json:"StatusMessage"`
}

func (r feishuResponse) ok() bool {
	return (r.Code != nil && *r.Code == 0) || (r.StatusCode != nil && *r.StatusCode == 0)
}

func (r feishuResponse) hasCode() bool {
	return r.Code != nil || r.StatusCode != nil
}

func (r feishuResponse) code() int {
	switch {
	case r.Code != nil:
		return *r.Code
	case r.StatusCode != nil:
		return *r.StatusCode
	default:
		return 0
	}
}

func (r feishuResponse) message() string {
	if r.Msg != "" {
		return r.Msg
	}
	return r.StatusMessage
}

// Send выполняет одну попытку отправки карточки
func (f *FeishuNotifier) Send(ctx context.Context, msg types.Message) error {
	err := f.send(ctx, msg)
	f.record(f.Name(), err)
	if err == nil {
		logger.Info("✅ [Feishu] Сообщение отправлено: %s", msg.Title)
	}
	return err
}

func (f *FeishuNotifier) send(ctx context.Context, msg types.Message) error {
	payload, err := f.buildPayload(msg)
	if err != nil {
		return &NotifyError{Channel: f.Name(), Err: err}
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return &NotifyError{Channel: f.Name(), Err: fmt.Errorf("failed to marshal message: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return &NotifyError{Channel: f.Name(), Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &NotifyError{Channel: f.Name(), Err: fmt.Errorf("failed to send message: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &NotifyError{Channel: f.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NotifyError{Channel: f.Name(), StatusCode: resp.StatusCode,
			Err: fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body)))}
	}

	// 2xx без кода в теле считается успехом, ошибки API приходят с ненулевым code
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var feishuResp feishuResponse
	if err := json.Unmarshal(body, &feishuResp); err != nil {
		logger.Debug("🔍 [Feishu] Ответ %d без JSON: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return nil
	}
	if feishuResp.hasCode() && !feishuResp.ok() {
		return &NotifyError{Channel: f.Name(), StatusCode: resp.StatusCode, Code: feishuResp.code(),
			Err: fmt.Errorf("feishu API error: %s", feishuResp.message())}
	}
	return nil
}

func (f *FeishuNotifier) buildPayload(msg types.Message) (feishuPayload, error) {
	p := feishuPayload{MsgType: "interactive"}
	p.Card.Config.WideScreenMode = true
	p.Card.Header.Template = cardTemplate(msg)
	p.Card.Header.Title = cardText{Content: msg.Title, Tag: "plain_text"}
	p.Card.Elements = []cardElement{{Tag: "div", Text: cardText{Content: msg.Body, Tag: "lark_md"}}}

	if f.secret != "" {
		ts := strconv.FormatInt(f.now().Unix(), 10)
		sign, err := Sign(ts, f.secret)
		if err != nil {
			return p, err
		}
		p.Timestamp = ts
		p.Sign = sign
	}
	return p, nil
}

// Sign вычисляет подпись вебхука: base64(HMAC-SHA256(timestamp+"\n"+secret, "")).
func Sign(timestamp, secret string) (string, error) {
	h := hmac.New(sha256.New, []byte(timestamp+"\n"+secret))
	if _, err := h.Write(nil); err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// cardTemplate выбирает цвет заголовка карточки
func cardTemplate(msg types.Message) string {
	switch msg.Level {
	case types.LevelWarning:
		return "red"
	case types.LevelInfo, types.LevelTest:
		return "green"
	}
	switch {
	case strings.Contains(msg.Title, "⚠️"), strings.Contains(msg.Title, "预警"):
		return "red"
	case strings.Contains(msg.Title, "📢"):
		return "green"
	default:
		return "blue"
	}
}

// Name возвращает имя
func (f *FeishuNotifier) Name() string {
	return "feishu"
}

// Stats возвращает статистику
func (f *FeishuNotifier) Stats() []Stats {
	return []Stats{f.snapshot()}
}
