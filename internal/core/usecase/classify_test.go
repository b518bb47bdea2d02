package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
)

type generatorFake struct {
	reply  string
	err    error
	called bool
	prompt string
}

func (f *generatorFake) Generate(_ context.Context, prompt string, _ int) (string, error) {
	f.called = true
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestClassifier(gen *generatorFake) *KeywordClassifier {
	return NewKeywordClassifier(
		[]string{"dormulin", "zetol", "tracs"},
		[]string{"thrips", "chilli", "fertilizer", "crop"},
		[]string{"smartphone", "budget", "movie"},
		gen,
		time.Second,
		nil,
	)
}

func TestClassifyProductAllowListWinsOverNonAgriKeyword(t *testing.T) {
	gen := &generatorFake{}
	c := newTestClassifier(gen)

	got := c.Classify(context.Background(), "Is Dormulin cheaper than a smartphone?")
	if got != domain.IntentAgriculture {
		t.Fatalf("expected AGRICULTURE for product mention, got %s", got)
	}
	if gen.called {
		t.Fatalf("lexical match must not reach the model fallback")
	}
}

func TestClassifyAgriKeyword(t *testing.T) {
	c := newTestClassifier(&generatorFake{})
	if got := c.Classify(context.Background(), "How to control thrips in chilli?"); got != domain.IntentAgriculture {
		t.Fatalf("expected AGRICULTURE, got %s", got)
	}
}

func TestClassifyNonAgriKeyword(t *testing.T) {
	gen := &generatorFake{}
	c := newTestClassifier(gen)
	if got := c.Classify(context.Background(), "Budget smartphones under 30k"); got != domain.IntentNonAgriculture {
		t.Fatalf("expected NON_AGRICULTURE, got %s", got)
	}
	if gen.called {
		t.Fatalf("lexical match must not reach the model fallback")
	}
}

func TestClassifyFallbackUsesModel(t *testing.T) {
	gen := &generatorFake{reply: "AGRICULTURE"}
	c := newTestClassifier(gen)

	got := c.Classify(context.Background(), "How to grow purple basil commercially?")
	if !gen.called {
		t.Fatalf("expected model fallback for ambiguous query")
	}
	if got != domain.IntentAgriculture {
		t.Fatalf("expected AGRICULTURE from model reply, got %s", got)
	}
}

func TestClassifyFallbackErrorDefaultsConservative(t *testing.T) {
	gen := &generatorFake{err: errors.New("model down")}
	c := newTestClassifier(gen)

	if got := c.Classify(context.Background(), "How to grow purple basil commercially?"); got != domain.IntentNonAgriculture {
		t.Fatalf("expected conservative NON_AGRICULTURE on model error, got %s", got)
	}
}

func TestParseIntentReply(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  domain.Intent
	}{
		{"plain agriculture", "AGRICULTURE", domain.IntentAgriculture},
		{"plain non agriculture", "NON_AGRICULTURE", domain.IntentNonAgriculture},
		{"substring trap", "the answer is NON_AGRICULTURE", domain.IntentNonAgriculture},
		{"lowercase", "agriculture", domain.IntentAgriculture},
		{"garbage", "I cannot classify this", domain.IntentNonAgriculture},
		{"empty", "", domain.IntentNonAgriculture},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseIntentReply(tc.reply); got != tc.want {
				t.Fatalf("parseIntentReply(%q) = %s, want %s", tc.reply, got, tc.want)
			}
		})
	}
}

func TestClassifyFallbackHookFiresOnlyOnModelPath(t *testing.T) {
	gen := &generatorFake{reply: "AGRICULTURE"}
	c := newTestClassifier(gen)
	fallbacks := 0
	c.OnModelFallback(func() { fallbacks++ })

	_ = c.Classify(context.Background(), "How to control thrips in chilli?")
	if fallbacks != 0 {
		t.Fatalf("lexical match must not count as fallback")
	}

	_ = c.Classify(context.Background(), "How to grow purple basil commercially?")
	if fallbacks != 1 {
		t.Fatalf("expected one fallback, got %d", fallbacks)
	}
}

func TestClassifyNilGeneratorDefaultsConservative(t *testing.T) {
	c := NewKeywordClassifier(nil, nil, nil, nil, time.Second, nil)
	if got := c.Classify(context.Background(), "anything at all"); got != domain.IntentNonAgriculture {
		t.Fatalf("expected NON_AGRICULTURE with no fallback generator, got %s", got)
	}
}
