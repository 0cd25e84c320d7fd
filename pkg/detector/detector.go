// Package detector tags extracted text with the language it is written in.
package detector

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Unknown is returned when no language could be determined.
const Unknown = ""

// DefaultMinConfidence is the confidence below which a detection is discarded.
const DefaultMinConfidence = 0.5

// DefaultLanguages covers the languages abstracts are commonly published in.
var DefaultLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Russian,
	lingua.Chinese,
	lingua.Japanese,
}

// LanguageDetector wraps a lingua detector restricted to a set of languages.
type LanguageDetector struct {
	detector      lingua.LanguageDetector
	minConfidence float64
}

// NewLanguageDetector builds a detector for languages. An empty list falls
// back to DefaultLanguages.
func NewLanguageDetector(languages ...lingua.Language) *LanguageDetector {
	if len(languages) < 2 {
		languages = DefaultLanguages
	}
	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build(),
		minConfidence: DefaultMinConfidence,
	}
}

// Detect returns the lowercase ISO 639-1 code of text's language and the
// detection confidence. Blank or ambiguous text yields Unknown.
func (d *LanguageDetector) Detect(text string) (string, float64) {
	if strings.TrimSpace(text) == "" {
		return Unknown, 0
	}

	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return Unknown, 0
	}

	confidence := d.detector.ComputeLanguageConfidence(text, language)
	if confidence < d.minConfidence {
		return Unknown, confidence
	}
	return strings.ToLower(language.IsoCode639_1().String()), confidence
}

// Code is Detect without the confidence, for use as a tagging function.
func (d *LanguageDetector) Code(text string) string {
	code, _ := d.Detect(text)
	return code
}
