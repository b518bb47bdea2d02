package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
	"github.com/agrovoice/agri-assistant/internal/core/ports"
)

const classifyMaxTokens = 5

// KeywordClassifier implements the layered intent strategy: lexical matching
// first, a zero-temperature model call only for queries no keyword list
// covers. The product allow-list wins over every other signal.
type KeywordClassifier struct {
	products []string
	agri     []string
	nonAgri  []string

	generator       ports.TextGenerator
	fallbackTimeout time.Duration
	logger          *slog.Logger
	fallbackHook    func()
}

// OnModelFallback registers a hook invoked whenever keyword routing finds
// nothing and the model is consulted. Used for observability counters.
func (c *KeywordClassifier) OnModelFallback(hook func()) {
	c.fallbackHook = hook
}

func NewKeywordClassifier(
	products, agri, nonAgri []string,
	generator ports.TextGenerator,
	fallbackTimeout time.Duration,
	logger *slog.Logger,
) *KeywordClassifier {
	if fallbackTimeout <= 0 {
		fallbackTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KeywordClassifier{
		products:        lowerAll(products),
		agri:            lowerAll(agri),
		nonAgri:         lowerAll(nonAgri),
		generator:       generator,
		fallbackTimeout: fallbackTimeout,
		logger:          logger,
	}
}

func (c *KeywordClassifier) Classify(ctx context.Context, query string) domain.Intent {
	lowered := strings.ToLower(query)

	// Product names are the least ambiguous domain anchor and short-circuit
	// everything else, including conflicting out-of-domain keywords.
	if containsAny(lowered, c.products) {
		return domain.IntentAgriculture
	}
	if containsAny(lowered, c.agri) {
		return domain.IntentAgriculture
	}
	if containsAny(lowered, c.nonAgri) {
		return domain.IntentNonAgriculture
	}

	return c.classifyWithModel(ctx, query)
}

func (c *KeywordClassifier) classifyWithModel(ctx context.Context, query string) domain.Intent {
	if c.fallbackHook != nil {
		c.fallbackHook()
	}
	if c.generator == nil {
		return domain.IntentNonAgriculture
	}

	callCtx, cancel := context.WithTimeout(ctx, c.fallbackTimeout)
	defer cancel()

	reply, err := c.generator.Generate(callCtx, buildIntentPrompt(query), classifyMaxTokens)
	if err != nil {
		c.logger.Warn("intent fallback failed, defaulting to non-agriculture", "error", err)
		return domain.IntentNonAgriculture
	}
	return parseIntentReply(reply)
}

// parseIntentReply checks NON_AGRICULTURE first: the AGRICULTURE substring is
// contained in it and would otherwise match falsely.
func parseIntentReply(reply string) domain.Intent {
	upper := strings.ToUpper(strings.TrimSpace(reply))
	if strings.Contains(upper, string(domain.IntentNonAgriculture)) {
		return domain.IntentNonAgriculture
	}
	if strings.Contains(upper, string(domain.IntentAgriculture)) {
		return domain.IntentAgriculture
	}
	return domain.IntentNonAgriculture
}

func buildIntentPrompt(query string) string {
	return `Classify the user query as AGRICULTURE or NON_AGRICULTURE.
Reply with exactly one of the two labels and nothing else.

Examples:
"How to control thrips in chilli?" -> AGRICULTURE
"What fertilizer dose suits banana?" -> AGRICULTURE
"Budget smartphones under 30k" -> NON_AGRICULTURE
"Best restaurants near me" -> NON_AGRICULTURE

Query: ` + query
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
