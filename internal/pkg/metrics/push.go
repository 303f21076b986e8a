package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the grid batch collectors to a Pushgateway once a run ends.
// An empty url is a no-op.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, job).
		Collector(RegionsProcessed).
		Collector(RegionsSkipped).
		Collector(TilesEmitted).
		Collector(RasterizeDuration).
		Collector(ProjectionErrors).
		Grouping("instance", "citygrid").
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
