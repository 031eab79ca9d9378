package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/internal/domain/entity"
)

// DefaultTranslationTimeout bounds a single provider call
const DefaultTranslationTimeout = 5 * time.Second

// TranslationService expands one input text into every stored language
type TranslationService interface {
	// Expand returns all three variants of text. It never fails: a target that
	// cannot be translated carries the original text.
	Expand(ctx context.Context, text string, source entity.Language) entity.LocalizedText

	// Check reports whether the configured provider is reachable
	Check(ctx context.Context) error

	// Provider names the backing provider, or "none"
	Provider() string
}

type translationServiceImpl struct {
	provider port.TranslationProvider
	timeout  time.Duration
	logger   Logger
}

// NewTranslationService creates a new TranslationService. A nil provider
// copies the input into every slot.
func NewTranslationService(provider port.TranslationProvider, timeout time.Duration, logger Logger) TranslationService {
	if timeout <= 0 {
		timeout = DefaultTranslationTimeout
	}
	return &translationServiceImpl{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Expand translates text from source into the other two languages concurrently
func (s *translationServiceImpl) Expand(ctx context.Context, text string, source entity.Language) entity.LocalizedText {
	var out entity.LocalizedText
	if strings.TrimSpace(text) == "" {
		return out
	}
	if !source.IsValid() {
		source = entity.DefaultLanguage
	}

	out.Set(source, text)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, target := range entity.Languages {
		if target == source {
			continue
		}
		wg.Add(1)
		go func(target entity.Language) {
			defer wg.Done()
			translated := s.translate(ctx, text, source, target)
			mu.Lock()
			out.Set(target, translated)
			mu.Unlock()
		}(target)
	}
	wg.Wait()

	return out
}

func (s *translationServiceImpl) translate(ctx context.Context, text string, source, target entity.Language) string {
	if s.provider == nil {
		return text
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	translated, err := s.provider.Translate(callCtx, text, source, target)
	if err != nil {
		s.logger.Warn("Translation failed, keeping original text",
			"provider", s.provider.Name(),
			"source", source,
			"target", target,
			"error", err)
		return text
	}
	if strings.TrimSpace(translated) == "" {
		s.logger.Warn("Translation returned empty text, keeping original text",
			"provider", s.provider.Name(),
			"source", source,
			"target", target)
		return text
	}
	return translated
}

// Check pings the provider within the per-call timeout
func (s *translationServiceImpl) Check(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.Ping(callCtx)
}

// Provider names the backing provider
func (s *translationServiceImpl) Provider() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}
