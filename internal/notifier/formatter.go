package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"SignalFeed/internal/model"

	"github.com/shopspring/decimal"
)

func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func optPrice(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return price(*v)
}

// FormatAlertDigest renders one monitor pass. Returns "" when there is
// nothing to report.
func FormatAlertDigest(alerts []model.Alert, at time.Time) string {
	if len(alerts) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>SignalFeed alerts</b> | %s\n\n", at.Format("2006-01-02 15:04"))

	for _, a := range alerts {
		switch a.Type {
		case model.AlertStopLoss:
			fmt.Fprintf(&b, "🛑 <b>%s</b> stop-loss hit\n", html.EscapeString(a.Symbol))
			fmt.Fprintf(&b, "   entry %s → now %s (%s%%)\n",
				price(a.EntryPrice), price(a.Price), decimal.NewFromFloat(a.DrawdownPercent).StringFixed(1))
			fmt.Fprintf(&b, "   stop %s\n", optPrice(a.Risk.StopLoss))
		default:
			icon := "🟢"
			if a.Type == model.AlertSell {
				icon = "🔴"
			}
			fmt.Fprintf(&b, "%s <b>%s</b> %s (net %+d, %s)\n",
				icon, html.EscapeString(a.Symbol), strings.ToUpper(string(a.Type)), a.Net, a.Confidence)
			fmt.Fprintf(&b, "   price %s | stop %s | target %s\n",
				price(a.Price), optPrice(a.Risk.StopLoss), optPrice(a.Risk.TakeProfit))
		}
	}
	return b.String()
}

// FormatRunSummary renders the outcome of a recommendation run.
func FormatRunSummary(s *model.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📬 <b>Daily recommendations</b> | %s\n\n", s.Date)
	fmt.Fprintf(&b, "Ideas: %d strategic, %d opportunistic, %d risk\n", s.Strategic, s.Opportunistic, s.Risk)
	fmt.Fprintf(&b, "Users: %d delivered, %d failed\n", s.UsersProcessed, s.UsersFailed)
	fmt.Fprintf(&b, "Feed items: %d\n", s.FeedItems)
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "  ⚠️ %s: %s\n", html.EscapeString(f.UserID), html.EscapeString(f.Error))
	}
	return b.String()
}

// FormatRunError renders a fatal run error.
func FormatRunError(date string, err error) string {
	return fmt.Sprintf("❌ <b>Recommendation run failed</b> | %s\n\n%s", date, html.EscapeString(err.Error()))
}

// FormatHelp lists the supported chat commands.
func FormatHelp() string {
	var b strings.Builder
	b.WriteString("📖 <b>SignalFeed commands</b>\n\n")
	b.WriteString("/run - run today's recommendations now\n")
	b.WriteString("/alerts - evaluate watchlist and positions now\n")
	b.WriteString("/help - show this message\n")
	return b.String()
}
