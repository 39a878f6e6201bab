package labresults

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/opencare/opencare/internal/labextract"
)

// ErrTextTooLarge is returned when the OCR text exceeds the configured bound.
var ErrTextTooLarge = errors.New("text exceeds maximum size")

const tracerName = "github.com/opencare/opencare/internal/domain/labresults"

type Service struct {
	extractor    *labextract.Extractor
	cache        ResultCache
	maxTextBytes int
	logger       zerolog.Logger
	tracer       trace.Tracer
}

func NewService(extractor *labextract.Extractor, maxTextBytes int, logger zerolog.Logger) *Service {
	return &Service{
		extractor:    extractor,
		maxTextBytes: maxTextBytes,
		logger:       logger,
		tracer:       otel.Tracer(tracerName),
	}
}

// SetCache attaches an optional result cache.
func (s *Service) SetCache(cache ResultCache) {
	s.cache = cache
}

// Extract runs the label extractor over req. The cache, when set, is
// consulted first; cache failures are logged and never fail the request.
func (s *Service) Extract(ctx context.Context, req *ExtractRequest) (*ExtractResponse, error) {
	ctx, span := s.tracer.Start(ctx, "labresults.Extract",
		trace.WithAttributes(
			attribute.Int("labels.count", len(req.Labels)),
			attribute.Int("text.bytes", len(req.Text)),
		))
	defer span.End()

	if s.maxTextBytes > 0 && len(req.Text) > s.maxTextBytes {
		err := fmt.Errorf("%w: %d bytes, limit %d", ErrTextTooLarge, len(req.Text), s.maxTextBytes)
		span.RecordError(err)
		span.SetStatus(codes.Error, "text too large")
		return nil, err
	}

	var key string
	if s.cache != nil {
		key = cacheKey(req)
		values, found, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Msg("lab result cache read failed")
		} else if found {
			span.SetAttributes(attribute.Bool("cache.hit", true), attribute.Int("values.count", len(values)))
			return newExtractResponse(values), nil
		}
	}

	values := s.extractor.Extract(req.Text, req.Labels)
	span.SetAttributes(attribute.Bool("cache.hit", false), attribute.Int("values.count", len(values)))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, values); err != nil {
			s.logger.Warn().Err(err).Msg("lab result cache write failed")
		}
	}

	s.logger.Debug().
		Int("labels", len(req.Labels)).
		Int("values", len(values)).
		Msg("lab values extracted")

	return newExtractResponse(values), nil
}
