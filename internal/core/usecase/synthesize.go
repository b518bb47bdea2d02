package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
	"github.com/agrovoice/agri-assistant/internal/core/ports"
)

// GroundedSynthesizer produces the final answer. It is a single-transition
// state machine: non-agriculture intent and sub-threshold retrieval resolve
// to canned messages without a model call; only a sufficiently similar chunk
// triggers grounded generation.
type GroundedSynthesizer struct {
	generator  ports.TextGenerator
	threshold  float64
	focusTerms []string
	maxTokens  int
	logger     *slog.Logger
}

func NewGroundedSynthesizer(
	generator ports.TextGenerator,
	threshold float64,
	focusTerms []string,
	maxTokens int,
	logger *slog.Logger,
) *GroundedSynthesizer {
	if threshold <= 0 {
		threshold = 0.85
	}
	if maxTokens <= 0 {
		maxTokens = 150
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GroundedSynthesizer{
		generator:  generator,
		threshold:  threshold,
		focusTerms: lowerAll(focusTerms),
		maxTokens:  maxTokens,
		logger:     logger,
	}
}

func (s *GroundedSynthesizer) Synthesize(
	ctx context.Context,
	query string,
	intent domain.Intent,
	retrieved []domain.RetrievedChunk,
) (string, domain.ResponseType) {
	if intent == domain.IntentNonAgriculture {
		return domain.MsgNonAgriculture, domain.ResponseNonAgriculture
	}

	if len(retrieved) == 0 || retrieved[0].Score < s.threshold {
		return domain.MsgNoRelevantContext, domain.ResponseNoRelevantContext
	}

	relevant := retrieved[:0:0]
	for _, chunk := range retrieved {
		if chunk.Score >= s.threshold {
			relevant = append(relevant, chunk)
		}
	}
	// Should not happen after the best-score gate above, but the filtered set
	// is what grounds generation, so check it anyway.
	if len(relevant) == 0 {
		return domain.MsgNoRelevantContext, domain.ResponseNoRelevantContext
	}

	prompt := s.buildAnswerPrompt(query, relevant[0].Text)
	answer, err := s.generator.Generate(ctx, prompt, s.maxTokens)
	if err != nil {
		s.logger.Warn("answer generation failed, degrading to no-context reply", "error", err)
		return domain.MsgNoRelevantContext, domain.ResponseNoRelevantContext
	}
	return strings.TrimSpace(answer), domain.ResponseAgricultureWithContext
}

// buildAnswerPrompt grounds the model on the single best chunk. When the
// query names a known disease/pest/product, the prompt pins the answer to
// that term so a chunk covering several issues cannot cross-contaminate it.
func (s *GroundedSynthesizer) buildAnswerPrompt(query, context string) string {
	if term := s.focusTerm(query); term != "" {
		return fmt.Sprintf(`Based on this context, answer ONLY about %s. Ignore other diseases, pests or products mentioned.

Context: %s

Question: %s

Answer about %s only:`, strings.ToUpper(term), context, query, strings.ToUpper(term))
	}
	return fmt.Sprintf("Answer based ONLY on this context:\n%s\n\nQ: %s\nA:", context, query)
}

// focusTerm returns the first matching term in fixed priority order.
func (s *GroundedSynthesizer) focusTerm(query string) string {
	lowered := strings.ToLower(query)
	for _, term := range s.focusTerms {
		if strings.Contains(lowered, term) {
			return term
		}
	}
	return ""
}
