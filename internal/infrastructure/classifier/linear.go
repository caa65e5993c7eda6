// Package classifier runs a pretrained TF-IDF + linear model exported as JSON.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/ports"
)

const (
	VectorizerFile = "vectorizer.json"
	ModelFile      = "model.json"
)

var tokenExpr = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vectorizer is the exported feature transform.
type Vectorizer struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	NgramRange  [2]int         `json:"ngram_range"`
	SublinearTF bool           `json:"sublinear_tf"`
	Norm        string         `json:"norm"`
}

// Model is the exported linear decision function.
type Model struct {
	Classes   []any     `json:"classes"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// Linear scores texts with the vectorizer and model.
type Linear struct {
	vectorizer Vectorizer
	model      Model
	positive   domain.Label
	negative   domain.Label
}

var _ ports.Classifier = (*Linear)(nil)

// LoadLinear reads both artifacts from dir. Any failure is ErrModelUnavailable.
func LoadLinear(dir string, threshold float64) (*Linear, error) {
	var vec Vectorizer
	if err := readJSON(filepath.Join(dir, VectorizerFile), &vec); err != nil {
		return nil, domain.WrapError(domain.ErrModelUnavailable, "load vectorizer", err)
	}
	var model Model
	if err := readJSON(filepath.Join(dir, ModelFile), &model); err != nil {
		return nil, domain.WrapError(domain.ErrModelUnavailable, "load model", err)
	}

	linear, err := NewLinear(vec, model, threshold)
	if err != nil {
		return nil, domain.WrapError(domain.ErrModelUnavailable, "validate artifacts", err)
	}
	return linear, nil
}

// NewLinear validates artifacts and resolves the class encoding.
func NewLinear(vec Vectorizer, model Model, threshold float64) (*Linear, error) {
	if len(vec.Vocabulary) == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}
	if len(vec.IDF) != len(model.Coef) {
		return nil, fmt.Errorf("idf has %d features, model has %d", len(vec.IDF), len(model.Coef))
	}
	for term, idx := range vec.Vocabulary {
		if idx < 0 || idx >= len(vec.IDF) {
			return nil, fmt.Errorf("term %q has out of range index %d", term, idx)
		}
	}
	if len(model.Classes) != 2 {
		return nil, fmt.Errorf("expected 2 classes, got %d", len(model.Classes))
	}
	if vec.NgramRange == [2]int{} {
		vec.NgramRange = [2]int{1, 1}
	}
	if vec.NgramRange[0] < 1 || vec.NgramRange[1] < vec.NgramRange[0] {
		return nil, fmt.Errorf("invalid ngram range %v", vec.NgramRange)
	}

	negative, err := domain.DecodeLabel(model.Classes[0], threshold)
	if err != nil {
		return nil, fmt.Errorf("class 0: %w", err)
	}
	positive, err := domain.DecodeLabel(model.Classes[1], threshold)
	if err != nil {
		return nil, fmt.Errorf("class 1: %w", err)
	}
	if negative == positive {
		return nil, fmt.Errorf("both classes decode to %s", positive)
	}

	return &Linear{vectorizer: vec, model: model, positive: positive, negative: negative}, nil
}

// Classify returns one label per text, in order.
func (l *Linear) Classify(ctx context.Context, texts []string) ([]domain.Label, error) {
	labels := make([]domain.Label, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if l.Decision(text) > 0 {
			labels[i] = l.positive
		} else {
			labels[i] = l.negative
		}
	}
	return labels, nil
}

// Decision is the signed distance of text from the separating hyperplane.
func (l *Linear) Decision(text string) float64 {
	features := l.transform(text)
	score := l.model.Intercept
	for idx, weight := range features {
		score += l.model.Coef[idx] * weight
	}
	return score
}

func (l *Linear) transform(text string) map[int]float64 {
	counts := map[int]float64{}
	for _, term := range ngrams(tokenExpr.FindAllString(strings.ToLower(text), -1), l.vectorizer.NgramRange) {
		if idx, ok := l.vectorizer.Vocabulary[term]; ok {
			counts[idx]++
		}
	}

	var norm float64
	for idx, tf := range counts {
		if l.vectorizer.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		weight := tf * l.vectorizer.IDF[idx]
		counts[idx] = weight
		norm += weight * weight
	}

	if strings.EqualFold(l.vectorizer.Norm, "l2") && norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range counts {
			counts[idx] /= norm
		}
	}
	return counts
}

func ngrams(tokens []string, span [2]int) []string {
	var out []string
	for n := span[0]; n <= span[1]; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
