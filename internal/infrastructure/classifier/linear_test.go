package classifier

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ReviewScanner/internal/domain"
)

func testArtifacts() (Vectorizer, Model) {
	vec := Vectorizer{
		Vocabulary: map[string]int{
			"best":         0,
			"ever":         1,
			"amazing":      2,
			"broke":        3,
			"week":         4,
			"best product": 5,
		},
		IDF:        []float64{1, 1, 1, 1, 1, 1},
		NgramRange: [2]int{1, 2},
		Norm:       "l2",
	}
	model := Model{
		Classes:   []any{"OR", "CG"},
		Coef:      []float64{1.5, 1.0, 2.0, -2.0, -0.5, 1.0},
		Intercept: -0.2,
	}
	return vec, model
}

func writeArtifacts(t *testing.T, vec Vectorizer, model Model) string {
	t.Helper()
	dir := t.TempDir()
	for name, v := range map[string]any{VectorizerFile: vec, ModelFile: model} {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), raw, 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLinearClassify(t *testing.T) {
	t.Parallel()

	vec, model := testArtifacts()
	clf, err := LoadLinear(writeArtifacts(t, vec, model), domain.DefaultFakeThreshold)
	if err != nil {
		t.Fatalf("LoadLinear: %v", err)
	}

	labels, err := clf.Classify(context.Background(), []string{
		"best product ever amazing",
		"broke after a week",
		"",
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	want := []domain.Label{domain.LabelFake, domain.LabelGenuine, domain.LabelGenuine}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestLinearNumericClasses(t *testing.T) {
	t.Parallel()

	vec, model := testArtifacts()
	model.Classes = []any{0.0, 1.0}
	clf, err := NewLinear(vec, model, domain.DefaultFakeThreshold)
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}

	labels, err := clf.Classify(context.Background(), []string{"amazing", "broke"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if labels[0] != domain.LabelFake || labels[1] != domain.LabelGenuine {
		t.Fatalf("unexpected labels: %v", labels)
	}
}

func TestLinearDecisionUsesNormalizedWeights(t *testing.T) {
	t.Parallel()

	vec, model := testArtifacts()
	clf, err := NewLinear(vec, model, domain.DefaultFakeThreshold)
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}

	// a single known term has unit weight after l2 normalization
	if got := clf.Decision("amazing"); got != 1.8 {
		t.Fatalf("unexpected decision: %v", got)
	}
	if got := clf.Decision("unknown words only"); got != -0.2 {
		t.Fatalf("unknown text should score the intercept, got %v", got)
	}
}

func TestLoadLinearMissingArtifacts(t *testing.T) {
	t.Parallel()

	_, err := LoadLinear(t.TempDir(), domain.DefaultFakeThreshold)
	if !domain.IsKind(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestNewLinearValidates(t *testing.T) {
	t.Parallel()

	vec, model := testArtifacts()
	model.Coef = model.Coef[:2]
	if _, err := NewLinear(vec, model, domain.DefaultFakeThreshold); err == nil {
		t.Fatalf("expected feature count mismatch error")
	}

	vec, model = testArtifacts()
	model.Classes = []any{"fake", "fake"}
	if _, err := NewLinear(vec, model, domain.DefaultFakeThreshold); err == nil {
		t.Fatalf("expected duplicate class error")
	}

	vec, model = testArtifacts()
	model.Classes = []any{"spam", "ham"}
	if _, err := NewLinear(vec, model, domain.DefaultFakeThreshold); err == nil {
		t.Fatalf("expected unknown class error")
	}
}
