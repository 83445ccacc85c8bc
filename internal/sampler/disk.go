// Disk usage probe — reads used and total bytes for one mount path.
// Uses gopsutil for cross-platform disk metrics.
package sampler

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/pushwatch/watchdog/internal/models"
)

// readDisk reads utilization of the filesystem containing path.
// A vanished mount or a virtual filesystem reporting zero total bytes
// is treated as unavailable.
func readDisk(ctx context.Context, path string) (models.Reading, error) {
	u, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return models.Reading{}, fmt.Errorf("reading disk usage for %s: %w", path, err)
	}
	if u.Total == 0 {
		return models.Reading{}, fmt.Errorf("filesystem at %s reports zero total bytes", path)
	}

	return models.Reading{
		Used:         u.Used,
		Total:        u.Total,
		UsedFraction: float64(u.Used) / float64(u.Total),
	}, nil
}
