package feature

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/semloc/semloc/internal/embedding"
	"github.com/semloc/semloc/internal/models"
)

func loginUsernameNode() *models.NodeDescriptor {
	return &models.NodeDescriptor{
		Tag:  "input",
		Type: "email",
		Attrs: map[string]string{
			"id":          "user-email",
			"name":        "login-email",
			"placeholder": "Email address",
		},
		Labels:       []string{"Email"},
		SiblingIndex: 1,
		Siblings: []models.SiblingText{
			{Position: "prev", Text: "Sign in to your account"},
		},
		Ancestors: []models.AncestorSummary{
			{Depth: 1, Tag: "div", Classes: []string{"form-group"}},
			{Depth: 2, Tag: "form", Text: "Sign in"},
			{Depth: 3, Tag: "main"},
		},
	}
}

func TestExtract_StructuralFields(t *testing.T) {
	ex := NewExtractor(nil)
	vec, err := ex.Extract(context.Background(), loginUsernameNode())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if vec.Depth != 3 {
		t.Errorf("Depth = %d, want 3", vec.Depth)
	}
	if vec.SiblingIndex != 1 {
		t.Errorf("SiblingIndex = %d, want 1", vec.SiblingIndex)
	}
	if vec.TagPath != "main/form/div/input" {
		t.Errorf("TagPath = %q, want main/form/div/input", vec.TagPath)
	}
	if vec.Embedding != nil {
		t.Errorf("Embedding should be nil without an embedder")
	}
}

func TestExtract_Deterministic(t *testing.T) {
	ex := NewExtractor(nil)
	a, err := ex.Extract(context.Background(), loginUsernameNode())
	if err != nil {
		t.Fatal(err)
	}
	b, err := ex.Extract(context.Background(), loginUsernameNode())
	if err != nil {
		t.Fatal(err)
	}
	if a.AttrHash != b.AttrHash {
		t.Errorf("AttrHash differs across identical descriptors")
	}
	if a.TextBlob != b.TextBlob || a.Description != b.Description {
		t.Errorf("text fields differ across identical descriptors")
	}
}

func TestExtract_AttrHashSensitivity(t *testing.T) {
	ex := NewExtractor(nil)
	a, _ := ex.Extract(context.Background(), loginUsernameNode())

	changed := loginUsernameNode()
	changed.Attrs["name"] = "login-email-v2"
	b, _ := ex.Extract(context.Background(), changed)

	if a.AttrHash == b.AttrHash {
		t.Errorf("AttrHash should change when an attribute value changes")
	}
}

func TestExtract_TextBlob(t *testing.T) {
	ex := NewExtractor(nil)
	vec, _ := ex.Extract(context.Background(), loginUsernameNode())
	for _, want := range []string{"login-email", "email address", "sign in to your account", "form-group"} {
		if !strings.Contains(vec.TextBlob, want) {
			t.Errorf("TextBlob missing %q: %q", want, vec.TextBlob)
		}
	}
	if vec.TextBlob != strings.ToLower(vec.TextBlob) {
		t.Errorf("TextBlob not lowercased: %q", vec.TextBlob)
	}
}

func TestExtract_Description(t *testing.T) {
	ex := NewExtractor(nil)
	vec, _ := ex.Extract(context.Background(), loginUsernameNode())
	for _, want := range []string{"tag=input", "type=email", "id=user-email", "name=login-email", "labels=Email", "ancestors=Sign in"} {
		if !strings.Contains(vec.Description, want) {
			t.Errorf("Description missing %q: %q", want, vec.Description)
		}
	}
}

func TestExtract_Malformed(t *testing.T) {
	ex := NewExtractor(nil)
	tests := []struct {
		name string
		node *models.NodeDescriptor
	}{
		{"nil node", nil},
		{"missing tag", &models.NodeDescriptor{Attrs: map[string]string{"id": "x"}}},
		{"no attrs or text", &models.NodeDescriptor{Tag: "input"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ex.Extract(context.Background(), tt.node); !errors.Is(err, ErrExtraction) {
				t.Errorf("err = %v, want ErrExtraction", err)
			}
		})
	}
}

func TestExtract_WithEmbedder(t *testing.T) {
	ex := NewExtractor(embedding.NewMockEmbedder(8))
	vec, err := ex.Extract(context.Background(), loginUsernameNode())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(vec.Embedding) != 8 {
		t.Errorf("len(Embedding) = %d, want 8", len(vec.Embedding))
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, embedding.ErrModelUnavailable
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, embedding.ErrModelUnavailable
}

func (failingEmbedder) Dimensions() int { return 8 }

func (failingEmbedder) Close() error { return nil }

func TestExtract_EmbedderUnavailable(t *testing.T) {
	ex := NewExtractor(failingEmbedder{})
	vec, err := ex.Extract(context.Background(), loginUsernameNode())
	if !errors.Is(err, embedding.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if vec == nil {
		t.Fatal("vector should still be returned for rule-only ranking")
	}
	if vec.Embedding != nil {
		t.Errorf("Embedding should be nil when the model is unavailable")
	}
}

func TestCache_SharesAcrossKeys(t *testing.T) {
	c := NewCache(2)
	key := PageKey{URL: "https://app.example.com/login", BuildID: "b1"}
	page := c.GetOrCreate(key)
	page.Set(3, &models.FeatureVector{AttrHash: 42})

	again := c.GetOrCreate(key)
	vec, ok := again.Get(3)
	if !ok || vec.AttrHash != 42 {
		t.Errorf("cached feature not shared: ok=%v vec=%+v", ok, vec)
	}
}

func TestCache_EvictsOldestPage(t *testing.T) {
	c := NewCache(2)
	a := PageKey{URL: "a", BuildID: "b1"}
	c.GetOrCreate(a).Set(0, &models.FeatureVector{AttrHash: 1})
	c.GetOrCreate(PageKey{URL: "b", BuildID: "b1"})
	c.GetOrCreate(PageKey{URL: "c", BuildID: "b1"})

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.GetOrCreate(a).Get(0); ok {
		t.Errorf("oldest page should have been evicted")
	}
}
