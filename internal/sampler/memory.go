// RAM usage probe — reads used and total memory bytes.
// Uses gopsutil for cross-platform memory metrics.
package sampler

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/pushwatch/watchdog/internal/models"
)

// readMemory reads current memory utilization. Used is computed as
// total minus available, so reclaimable caches do not count as pressure.
func readMemory(ctx context.Context) (models.Reading, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.Reading{}, fmt.Errorf("reading virtual memory: %w", err)
	}
	if v.Total == 0 {
		return models.Reading{}, fmt.Errorf("virtual memory reports zero total")
	}

	used := v.Total - v.Available
	return models.Reading{
		Used:         used,
		Total:        v.Total,
		UsedFraction: float64(used) / float64(v.Total),
	}, nil
}
