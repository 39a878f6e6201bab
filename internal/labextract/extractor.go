package labextract

import (
	"github.com/rs/zerolog"
)

// ExtractedValue pairs an input label with the value found after it.
type ExtractedValue struct {
	TestName string `json:"testName"`
	Value    string `json:"value"`
}

// Extractor runs Locate and ExtractValue over a batch of labels.
type Extractor struct {
	logger zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger makes the extractor trace, at debug level, how each label was
// resolved. Logging never changes the result.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New returns an Extractor. Without options it logs nothing.
func New(opts ...Option) *Extractor {
	e := &Extractor{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns one ExtractedValue per label that could be located and
// followed by a number, in the order of labels. Labels that cannot be
// resolved are left out; the result is never nil.
func (e *Extractor) Extract(text string, labels []string) []ExtractedValue {
	values := make([]ExtractedValue, 0, len(labels))
	for _, label := range labels {
		offset, kind := locate(text, label)
		if offset == NotFound {
			e.logger.Debug().Str("label", label).Msg("label not found")
			continue
		}

		if offset > len(text) {
			offset = len(text)
		}
		value, ok := ExtractValue(text[offset:])
		if !ok {
			e.logger.Debug().Str("label", label).Str("match", string(kind)).Int("offset", offset).
				Msg("no value after label")
			continue
		}

		e.logger.Debug().Str("label", label).Str("match", string(kind)).Int("offset", offset).
			Str("value", value).Msg("label resolved")
		values = append(values, ExtractedValue{TestName: label, Value: value})
	}
	return values
}

// Extract runs a default Extractor.
func Extract(text string, labels []string) []ExtractedValue {
	return New().Extract(text, labels)
}
