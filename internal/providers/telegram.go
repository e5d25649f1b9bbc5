package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"iotmon/internal/logging"
	"iotmon/internal/models"
	"iotmon/internal/utils"
)

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// Telegram forwards alerts to one chat through the go-telegram/bot client.
type Telegram struct {
	bot     *bot.Bot
	chatID  int64
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewTelegram builds the bot without contacting the API; extra options are
// passed through to bot.New.
func NewTelegram(token string, chatID int64, ratePerSecond int, logger *logging.Logger, opts ...bot.Option) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("missing Telegram bot token")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("missing Telegram chat id")
	}
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}

	b, err := bot.New(token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return &Telegram{
		bot:     b,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		logger:  logger,
	}, nil
}

// Forward sends the alert as a Markdown message, retrying up to three times.
func (t *Telegram) Forward(ctx context.Context, task models.Task) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	params := &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      TelegramText(task),
		ParseMode: "Markdown",
	}
	return utils.Retry(ctx, t.logger, 3, time.Second, func() error {
		if _, err := t.bot.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", t.chatID, err)
		}
		return nil
	})
}

// TelegramText renders the message body sent for an alert.
func TelegramText(task models.Task) string {
	a := task.Alert
	unit := models.MetricUnit(a.Metric)
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n%s\n\n", markdownEscaper.Replace(task.Subject()), markdownEscaper.Replace(a.Message))
	if a.DeviceName != "" {
		fmt.Fprintf(&sb, "*Device:* %s\n", markdownEscaper.Replace(a.DeviceName))
	}
	if a.Metric != "" {
		fmt.Fprintf(&sb, "*Metric:* %s\n", markdownEscaper.Replace(models.MetricLabel(a.Metric)))
	}
	fmt.Fprintf(&sb, "*Value:* %.2f%s\n*Threshold:* %.2f%s", a.Value, unit, a.Threshold, unit)
	if !a.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "\n*Fired:* %s", a.CreatedAt.UTC().Format(time.RFC3339))
	}
	return sb.String()
}
