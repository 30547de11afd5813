package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/candletrades/market"
)

// FormatRunOrg renders a run as an Org-mode block: facts in a PROPERTIES
// drawer followed by a table of its candles.
func FormatRunOrg(r RunRecord, candles []market.Candle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Run: %s %s (%s)\n", r.Pair, r.StartedAt.UTC().Format(time.RFC3339), shortID(r.RunID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":RUN_ID: %s\n", r.RunID)
	fmt.Fprintf(&b, ":PAIR: %s\n", r.Pair)
	fmt.Fprintf(&b, ":WINDOW: %s\n", market.Window{Start: r.WindowStart, End: r.WindowEnd})
	fmt.Fprintf(&b, ":CANDLES: %d\n", r.Candles)
	fmt.Fprintf(&b, ":TRADES: %d\n", r.Trades)
	fmt.Fprintf(&b, ":PAGES: %d\n", r.Pages)
	fmt.Fprintf(&b, ":STOP: %s\n", r.StopReason)
	fmt.Fprintf(&b, ":CSV: %s\n", r.CSVPath)
	fmt.Fprintf(&b, ":UPLOADED: %t\n", r.Uploaded)
	if r.UploadTarget != "" {
		fmt.Fprintf(&b, ":UPLOAD_TARGET: %s\n", r.UploadTarget)
	}
	if r.UploadError != "" {
		fmt.Fprintf(&b, ":UPLOAD_ERROR: %s\n", r.UploadError)
	}
	b.WriteString(":END:\n")

	if len(candles) == 0 {
		return b.String()
	}

	b.WriteString("\n| open (UTC) | open | high | low | close | volume | trades |\n")
	b.WriteString("|-\n")
	for _, c := range candles {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %d |\n",
			market.MillisToTime(c.OpenTime).Format("2006-01-02 15:04"),
			c.Open, c.High, c.Low, c.Close, c.BaseVolume, c.TradeCount)
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
