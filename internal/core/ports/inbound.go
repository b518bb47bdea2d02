package ports

import (
	"context"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
)

// QueryService is the inbound contract for one full question/answer cycle.
type QueryService interface {
	Process(ctx context.Context, rawQuery string) (*domain.AnswerEnvelope, error)
}

// IndexBuilder is the inbound contract for the offline ingestion pipeline.
type IndexBuilder interface {
	BuildFromFile(ctx context.Context, path string) (domain.IndexInfo, error)
}
