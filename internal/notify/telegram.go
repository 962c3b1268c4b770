package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"huette/internal/events"
	"huette/internal/models"
	"huette/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TelegramSender is the part of tgbotapi.BotAPI used here.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// DashboardSource builds the day statistics for the digest.
type DashboardSource interface {
	Dashboard(ctx context.Context, day time.Time) (*service.Dashboard, error)
}

// Notifier sends the daily digest and import alerts to the configured chats.
type Notifier struct {
	sender     TelegramSender
	chatIDs    []int64
	dashboards DashboardSource
	limiter    *rate.Limiter
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewNotifier(sender TelegramSender, chatIDs []int64, dashboards DashboardSource, logger *zerolog.Logger) *Notifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "telegram").Logger()
	return &Notifier{
		sender:     sender,
		chatIDs:    chatIDs,
		dashboards: dashboards,
		// Telegram allows about 30 messages per second per bot.
		limiter: rate.NewLimiter(rate.Limit(25), 1),
		logger:  &l,
		now:     time.Now,
	}
}

// SendDigest sends today's dashboard to every chat.
func (n *Notifier) SendDigest(ctx context.Context) error {
	day := models.DateOnly(n.now())
	dash, err := n.dashboards.Dashboard(ctx, day)
	if err != nil {
		return fmt.Errorf("build dashboard: %w", err)
	}
	return n.broadcast(ctx, FormatDigest(dash))
}

// HandleImport is an events.EventHandler for import.completed. Only failed
// and partial runs are reported.
func (n *Notifier) HandleImport(e events.Event) error {
	var run models.ImportRun
	if err := e.Decode(&run); err != nil {
		return fmt.Errorf("decode import run: %w", err)
	}
	if run.Status == models.ImportOK {
		return nil
	}

	text := fmt.Sprintf("⚠️ HRS-Import %s (%s bis %s)\nZusammenfassungen: %d, Kontingente: %d, Reservierungen: %d",
		run.Status, models.FormatDate(run.From), models.FormatDate(run.To),
		run.Summaries, run.Quotas, run.Reservations)
	if run.Error != "" {
		text += "\nFehler: " + run.Error
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return n.broadcast(ctx, text)
}

// Register schedules the daily digest on c.
func (n *Notifier) Register(c *cron.Cron, schedule string) error {
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := n.SendDigest(ctx); err != nil {
			n.logger.Error().Err(err).Msg("Digest failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule digest %q: %w", schedule, err)
	}
	return nil
}

func (n *Notifier) broadcast(ctx context.Context, text string) error {
	var firstErr error
	for _, chatID := range n.chatIDs {
		if err := n.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := n.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Telegram send failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// FormatDigest renders a dashboard as a plain text message.
func FormatDigest(d *service.Dashboard) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏔 Belegung %s\n", d.Day.Format("02.01.2006"))
	fmt.Fprintf(&sb, "Anreisen: %d (offen: %d)\n", len(d.Arrivals), len(d.PendingCheckIns))
	fmt.Fprintf(&sb, "Abreisen: %d\n", len(d.Departures))
	fmt.Fprintf(&sb, "Im Haus: %d (%s)\n", d.InHouse.Total(), formatBeds(d.InHouse))
	fmt.Fprintf(&sb, "Eingecheckt: %d\n", d.CheckedIn)
	if d.Free.Categorized {
		fmt.Fprintf(&sb, "Frei laut HRS: %d (%s)\n", d.Free.Total, formatBeds(d.Free.Beds))
	} else {
		sb.WriteString("Frei laut HRS: keine Daten\n")
	}
	if d.Quota != nil {
		fmt.Fprintf(&sb, "Kontingent: %s (%s)\n", d.Quota.Title, formatBeds(d.Quota.Allocation()))
	}
	if d.LastImport != nil {
		fmt.Fprintf(&sb, "Letzter Import: %s, %s", d.LastImport.Status, d.LastImport.FinishedAt.Format("02.01. 15:04"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatBeds(b models.Beds) string {
	parts := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		parts = append(parts, fmt.Sprintf("%s %d", c, b.Get(c)))
	}
	return strings.Join(parts, ", ")
}
