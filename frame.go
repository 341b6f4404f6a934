package scene

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	ddotel "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/opentelemetry"
	ddtracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"pkg.world.dev/world-engine/scene/component"
	"pkg.world.dev/world-engine/scene/statsd"
	"pkg.world.dev/world-engine/scene/types"
)

// Frame runs one frame: pending fabs are committed, every component starts a new update session and
// updates in registration order, and the draw requests of all draw sources are gathered and handed
// to the renderer. The returned slice is owned by the caller.
func (s *Scene) Frame(ctx context.Context) ([]types.DrawRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ddotel.ContextWithStartOptions(ctx, ddtracer.Measured()), "scene.frame")
	defer span.End()

	if err := s.commitFabs(); err != nil {
		recordError(span, err)
		return nil, err
	}

	components := s.components.All()
	for _, c := range components {
		c.NewUpdateSession()
	}
	s.culler.ResetStats()

	for _, c := range components {
		if err := s.update(ctx, c); err != nil {
			recordError(span, err)
			return nil, err
		}
		if vp, ok := c.(ViewProvider); ok {
			s.refreshView(vp)
		}
	}

	var requests []types.DrawRequest
	for _, c := range components {
		if ds, ok := c.(DrawSource); ok {
			requests = append(requests, ds.DrawRequests()...)
		}
	}

	if s.renderer != nil {
		if err := s.renderer.Render(ctx, requests); err != nil {
			recordError(span, err)
			return nil, eris.Wrap(err, "renderer failed")
		}
	}

	stats := s.culler.Stats()
	statsd.EmitCullStats(len(requests), stats.Tests, stats.Culled)
	statsd.EmitFrameStat(start, s.stage.Current().String())
	s.frames++

	s.logger.Trace().
		Uint64("frame", s.frames).
		Int("draw_requests", len(requests)).
		Uint64("culled", stats.Culled).
		Msg("frame done")
	return requests, nil
}

func (s *Scene) update(ctx context.Context, c component.Component) error {
	_, span := s.tracer.Start(ddotel.ContextWithStartOptions(ctx, ddtracer.Measured()), "component.update."+c.Name())
	defer span.End()

	start := time.Now()
	if err := c.Update(ctx); err != nil {
		recordError(span, err)
		return eris.Wrapf(err, "component %s failed to update", c.Name())
	}
	statsd.EmitComponentStat(start, c.Name())
	return nil
}

// refreshView rederives the frustum from the active camera. A degenerate camera keeps the previous
// planes.
func (s *Scene) refreshView(vp ViewProvider) {
	proj, view, ok := vp.ActiveView()
	if !ok {
		return
	}
	changed, err := s.frustum.Update(proj, view)
	if err != nil {
		s.logger.Warn().Err(err).Msg("active camera has a degenerate view, keeping previous frustum")
		return
	}
	if changed {
		s.culler.SetFrustum(s.frustum)
	}
}

func recordError(span trace.Span, err error) {
	span.SetStatus(codes.Error, eris.ToString(err, true))
	span.RecordError(err)
}
