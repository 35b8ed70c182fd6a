package geticon

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// refresh runs job in the background unless a refresh of key is already in
// flight. The job is detached from ctx's cancellation but keeps its values,
// so forwarded headers and trace context carry over.
func (s *Service) refresh(ctx context.Context, key string, job func(context.Context) error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	ch := s.refreshes.DoChan(key, func() (any, error) {
		return nil, s.runRefresh(detached, key, job)
	})
	go func() {
		defer s.pending.Done()
		<-ch
	}()
}

func (s *Service) runRefresh(ctx context.Context, key string, job func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "geticon.refresh",
		trace.WithNewRoot(),
		trace.WithLinks(trace.LinkFromContext(ctx)),
		trace.WithAttributes(attribute.String("geticon.cache_key", key)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panic: %v", r)
		}
		if err != nil {
			recordError(span, err)
			s.log().Warn("background refresh failed", "key", key, "error", err)
			return
		}
		s.log().Debug("background refresh completed", "key", key)
	}()

	s.log().Debug("background refresh started", "key", key)
	return job(ctx)
}

func (s *Service) refreshImage(ctx context.Context, key string, site target, size int) error {
	content, contentType, _, err := s.resolveImage(ctx, site, size)
	if err != nil {
		return err
	}
	s.cache.Insert(key, content, contentType, "")
	s.cache.RemoveFromExpired(key)
	return nil
}

func (s *Service) refreshMetadata(ctx context.Context, key string, site target, size int) error {
	doc, err := s.metadata(ctx, site, size)
	if err != nil {
		return err
	}
	s.cache.Insert(key, doc, "application/json", "")
	s.cache.RemoveFromExpired(key)
	return nil
}
