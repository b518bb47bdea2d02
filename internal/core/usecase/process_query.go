package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
	"github.com/agrovoice/agri-assistant/internal/core/ports"
)

// ProcessQueryUseCase composes correction, classification, retrieval and
// synthesis into one request/response cycle. Stages run strictly in order;
// each duration is measured, never fabricated.
type ProcessQueryUseCase struct {
	corrector   ports.QueryCorrector
	classifier  ports.IntentClassifier
	retriever   ports.KnowledgeRetriever
	synthesizer ports.AnswerSynthesizer
	cache       ports.AnswerCache
	topK        int
	logger      *slog.Logger
}

func NewProcessQueryUseCase(
	corrector ports.QueryCorrector,
	classifier ports.IntentClassifier,
	retriever ports.KnowledgeRetriever,
	synthesizer ports.AnswerSynthesizer,
	cache ports.AnswerCache,
	topK int,
	logger *slog.Logger,
) *ProcessQueryUseCase {
	if topK <= 0 {
		topK = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessQueryUseCase{
		corrector:   corrector,
		classifier:  classifier,
		retriever:   retriever,
		synthesizer: synthesizer,
		cache:       cache,
		topK:        topK,
		logger:      logger,
	}
}

func (uc *ProcessQueryUseCase) Process(ctx context.Context, rawQuery string) (*domain.AnswerEnvelope, error) {
	start := time.Now()

	// Empty input short-circuits to the out-of-domain message: there is
	// nothing to retrieve against and no point spending a model call.
	if strings.TrimSpace(rawQuery) == "" {
		return &domain.AnswerEnvelope{
			Question:          rawQuery,
			CorrectedQuestion: rawQuery,
			Intent:            domain.IntentNonAgriculture,
			Answer:            domain.MsgNonAgriculture,
			ResponseType:      domain.ResponseNonAgriculture,
			Retrieved:         []domain.RetrievedChunk{},
			Timings:           domain.StageTimings{Total: time.Since(start)},
		}, nil
	}

	if uc.cache != nil {
		if cached, ok := uc.cache.Get(ctx, rawQuery); ok {
			// Replay content verbatim; only the timing fields reflect the
			// actual (near-zero) cost of the lookup.
			replay := *cached
			replay.CacheHit = true
			replay.Timings = domain.StageTimings{Total: time.Since(start)}
			return &replay, nil
		}
	}

	correction := uc.corrector.Correct(rawQuery)

	classifyStart := time.Now()
	intent := uc.classifier.Classify(ctx, correction.CorrectedText)
	classifyDur := time.Since(classifyStart)

	var retrieved []domain.RetrievedChunk
	var retrieveDur time.Duration
	if intent == domain.IntentAgriculture {
		retrieveStart := time.Now()
		hits, err := uc.retriever.Retrieve(ctx, correction.CorrectedText, uc.topK)
		retrieveDur = time.Since(retrieveStart)
		if err != nil {
			// Degrade to the no-context branch rather than failing the call.
			uc.logger.Warn("retrieval failed, proceeding without context", "error", err)
			hits = nil
		}
		retrieved = hits
	}
	if retrieved == nil {
		retrieved = []domain.RetrievedChunk{}
	}

	generateStart := time.Now()
	answer, responseType := uc.synthesizer.Synthesize(ctx, correction.CorrectedText, intent, retrieved)
	generateDur := time.Since(generateStart)

	envelope := &domain.AnswerEnvelope{
		Question:          rawQuery,
		CorrectedQuestion: correction.CorrectedText,
		Corrections:       correction.Applied,
		Intent:            intent,
		Answer:            answer,
		ResponseType:      responseType,
		Retrieved:         retrieved,
		Timings: domain.StageTimings{
			Total:    time.Since(start),
			Classify: classifyDur,
			Retrieve: retrieveDur,
			Generate: generateDur,
		},
	}

	if uc.cache != nil {
		if err := uc.cache.Put(ctx, rawQuery, envelope); err != nil {
			uc.logger.Warn("answer cache write failed", "error", err)
		}
	}

	uc.logger.Info("query processed",
		"intent", envelope.Intent,
		"response_type", envelope.ResponseType,
		"retrieved", len(envelope.Retrieved),
		"corrections", len(envelope.Corrections),
		"total_ms", float64(envelope.Timings.Total.Microseconds())/1000.0,
	)
	return envelope, nil
}
