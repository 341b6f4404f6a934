// Package statsd wraps the few statsd calls the scene makes. It hides the datadog dependency so a
// different client only needs to touch this file.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// SetClient replaces the global client. Tests use it to observe emitted metrics.
func SetClient(c ddstatsd.ClientInterface) {
	client = c
}

func EmitFrameStat(start time.Time, stage string) {
	duration := time.Since(start)
	if err := Client().Timing("frame", duration, []string{"stage:" + stage}, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit frame stat: %v", err)
	}
}

func EmitComponentStat(start time.Time, component string) {
	duration := time.Since(start)
	if err := Client().Timing("component.update", duration, []string{"component:" + component}, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit component stat: %v", err)
	}
}

// EmitCullStats reports how many draw requests a frame produced and how much culling it took.
func EmitCullStats(requests int, tests, culled uint64) {
	c := Client()
	for _, err := range []error{
		c.Gauge("draw_requests", float64(requests), nil, 1),
		c.Count("cull.tests", int64(tests), nil, 1),   //nolint:gosec // counts stay far below MaxInt64
		c.Count("cull.culled", int64(culled), nil, 1), //nolint:gosec // counts stay far below MaxInt64
	} {
		if err != nil {
			log.Logger.Warn().Msgf("failed to emit cull stat: %v", err)
		}
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("scene"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return eris.Wrap(err, "failed to create statsd client")
	}
	client = newClient
	return nil
}
