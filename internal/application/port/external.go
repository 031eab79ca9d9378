package port

import (
	"context"
	"io"

	"github.com/garyjia/dmt-records/internal/domain/entity"
)

// TranslationProvider translates text between supported languages
type TranslationProvider interface {
	Translate(ctx context.Context, text string, source, target entity.Language) (string, error)

	// Name identifies the provider in logs and health output
	Name() string

	// Ping checks that the provider is reachable
	Ping(ctx context.Context) error
}

// ReportWriter renders tabular export data in one file format
type ReportWriter interface {
	Write(w io.Writer, sheet string, headers []string, rows [][]string) error
	ContentType() string
	Extension() string
}
