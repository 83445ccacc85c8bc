package notify

import (
	"fmt"
	"strings"

	"github.com/pushwatch/watchdog/internal/models"
)

// FormatAlert renders the notification title and message for an alert.
// Breaches include the observed percentage, humanized used/total bytes
// and the breached threshold; recoveries state the metric is back under
// threshold.
func FormatAlert(a models.Alert, host string) (title, message string) {
	label := metricLabel(a.Metric)

	if a.Recovered {
		title = fmt.Sprintf("Watchdog recovered: %s on %s", label, host)
		message = fmt.Sprintf("%s usage on %s is back under threshold.", label, host)
		return title, message
	}

	title = fmt.Sprintf("Watchdog %s: %s >= %.0f%% on %s",
		a.Severity, label, a.Threshold*100, host)
	message = fmt.Sprintf("%s usage on %s is %s.\nUsage: %.1f%% (%s / %s)\nThreshold: %.0f%%",
		label, host, a.Severity,
		a.Observed*100, fmtBytes(a.Used), fmtBytes(a.Total),
		a.Threshold*100)
	return title, message
}

// metricLabel maps internal metric names to the labels shown in
// notifications: "memory" becomes "RAM", "disk:/home" becomes "Disk(/home)".
func metricLabel(metric string) string {
	if metric == "memory" {
		return "RAM"
	}
	if path, ok := strings.CutPrefix(metric, "disk:"); ok {
		return fmt.Sprintf("Disk(%s)", path)
	}
	return metric
}

// fmtBytes renders a byte count using binary units.
func fmtBytes(n uint64) string {
	const unit = 1024.0
	units := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}

	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	x := float64(n) / unit
	for _, u := range units {
		if x < unit || u == units[len(units)-1] {
			return fmt.Sprintf("%.2f %s", x, u)
		}
		x /= unit
	}
	return fmt.Sprintf("%.2f PiB", x)
}
