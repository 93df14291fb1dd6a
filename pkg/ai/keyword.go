package ai

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

var keywordLexicon = map[string][]string{
	"quality":    {"comprehensive", "thorough", "robust", "structured", "clear", "detailed", "analysis", "testing"},
	"innovation": {"novel", "innovative", "creative", "unique", "breakthrough", "paradigm", "new", "advanced"},
	"impact":     {"impactful", "significant", "potential", "useful", "effective", "scalable", "application", "benefit"},
	"execution":  {"implemented", "working", "deployed", "tested", "complete", "functional", "reliable", "performance"},
	"design":     {"architecture", "modular", "design", "interface", "usability", "documented", "maintainable", "clean"},
}

var keywordAliases = map[string]string{
	"originality":    "innovation",
	"creativity":     "innovation",
	"novelty":        "innovation",
	"implementation": "execution",
	"technical":      "execution",
	"functionality":  "execution",
	"usefulness":     "impact",
	"relevance":      "impact",
	"documentation":  "quality",
	"presentation":   "design",
	"ux":             "design",
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "for": {}, "from": {},
	"has": {}, "have": {}, "how": {}, "in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "were": {}, "which": {}, "with": {}, "will": {},
	"we": {}, "our": {}, "their": {}, "they": {}, "all": {}, "can": {}, "not": {}, "but": {}, "into": {},
}

// KeywordScorer grades criteria by keyword coverage in the submission text. It needs no
// external service and is used when no model provider is configured.
type KeywordScorer struct{}

// NewKeywordScorer constructs the local scorer.
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{}
}

// Name identifies the provider in stored score sets.
func (k *KeywordScorer) Name() string {
	return "keyword"
}

// Score counts unique indicator words per criterion. Each criterion's indicators are the
// lexicon entries matching its name plus the significant terms of its name and description.
func (k *KeywordScorer) Score(ctx context.Context, input ScoringInput) (ScoringResult, error) {
	if err := ctx.Err(); err != nil {
		return ScoringResult{}, err
	}
	if len(input.Criteria) == 0 {
		return ScoringResult{}, fmt.Errorf("no criteria to score")
	}

	tokens := make(map[string]struct{})
	for _, token := range tokenize(strings.Join([]string{input.SubmissionTitle, input.Content}, " ")) {
		tokens[token] = struct{}{}
	}

	scores := make(map[string]CriterionScore, len(input.Criteria))
	for _, criterion := range input.Criteria {
		indicators := indicatorsFor(criterion)
		found := make([]string, 0)
		for _, word := range indicators {
			if _, ok := tokens[word]; ok {
				found = append(found, word)
			}
		}

		value := 0.0
		if len(indicators) > 0 {
			value = math.Min(1, float64(len(found))/float64(len(indicators)))
		}

		scores[criterion.Key] = CriterionScore{
			Value:    math.Round(value*100) / 100,
			Feedback: keywordFeedback(found, len(indicators)),
		}
	}

	return ScoringResult{
		Scores: scores,
		Raw:    map[string]interface{}{"tokens": len(tokens)},
	}, nil
}

func indicatorsFor(criterion Criterion) []string {
	set := make(map[string]struct{})
	nameTokens := tokenize(criterion.Name)
	for _, token := range nameTokens {
		category := token
		if alias, ok := keywordAliases[token]; ok {
			category = alias
		}
		for _, word := range keywordLexicon[category] {
			set[word] = struct{}{}
		}
	}
	for _, token := range append(nameTokens, tokenize(criterion.Description)...) {
		if len(token) >= 4 {
			set[token] = struct{}{}
		}
	}

	indicators := make([]string, 0, len(set))
	for word := range set {
		indicators = append(indicators, word)
	}
	sort.Strings(indicators)
	return indicators
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, stop := stopWords[field]; stop {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

func keywordFeedback(found []string, total int) string {
	if len(found) == 0 {
		return fmt.Sprintf("no indicators found (0 of %d)", total)
	}
	return fmt.Sprintf("matched %d of %d indicators: %s", len(found), total, strings.Join(found, ", "))
}
