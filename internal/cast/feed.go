package cast

import (
	"context"

	"go.uber.org/zap"
)

// StaticFeed registers a fixed set of websocket endpoint URLs. It stands in
// for network discovery, which lives outside this module; any component
// implementing DiscoveryFeed can feed the registry the same way.
type StaticFeed struct {
	URLs   []string
	Logger *zap.Logger
}

// Run dials every configured endpoint and hands it to the sink. Endpoints
// that cannot be reached are logged and skipped; the feed itself never
// fails on an individual device.
func (f *StaticFeed) Run(ctx context.Context, sink DiscoverySink) error {
	for _, u := range f.URLs {
		ep, err := DialEndpoint(ctx, u, f.Logger)
		if err != nil {
			f.Logger.Warn("endpoint unreachable, skipping", zap.String("url", u), zap.Error(err))
			continue
		}
		sink.OnEndpointFound(ep)
	}
	return nil
}

var _ DiscoveryFeed = (*StaticFeed)(nil)
