package ai

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"diamondbot/pkg/domain"
)

func TestClassifyByKeywords(t *testing.T) {
	cases := []struct {
		text string
		want domain.Intent
	}{
		{"hi", domain.IntentGreeting},
		{"Hello there", domain.IntentGreeting},
		{"show me oval diamonds under $5000", domain.IntentSearch},
		{"looking for a 2 carat round stone", domain.IntentSearch},
		{"design a ring for my diamond", domain.IntentDesignFreeInput},
		{"create a pendant with sapphires", domain.IntentDesignFreeInput},
		{"make it yellow gold instead", domain.IntentDesignEdit},
		{"try a different style", domain.IntentDesignVariation},
		{"I want to sell my diamond", domain.IntentListing},
		{"what are your opening hours", domain.IntentGeneralInquiry},
		{"", domain.IntentGeneralInquiry},
	}
	for _, tc := range cases {
		got := ClassifyByKeywords(tc.text, SessionContext{})
		if got.Intent != tc.want {
			t.Errorf("ClassifyByKeywords(%q) = %v, want %v", tc.text, got.Intent, tc.want)
		}
		if got.Confidence <= 0 || got.Confidence > 1 {
			t.Errorf("ClassifyByKeywords(%q) confidence %v out of range", tc.text, got.Confidence)
		}
	}
}

func TestClassifyByKeywordsUpgradesDesignWithDiamondOnFile(t *testing.T) {
	got := ClassifyByKeywords("design a ring for my diamond", SessionContext{HasDiamond: true})
	if got.Intent != domain.IntentDesignWithGIA {
		t.Fatalf("intent = %v, want design_with_gia", got.Intent)
	}

	got = ClassifyByKeywords("design a ring for my diamond", SessionContext{})
	if got.Intent != domain.IntentDesignFreeInput {
		t.Fatalf("intent without diamond = %v, want design_free_input", got.Intent)
	}
}

func TestClassifyByKeywordsFallbackConfidence(t *testing.T) {
	got := ClassifyByKeywords("what are your opening hours", SessionContext{})
	if got.Confidence != 0.5 {
		t.Fatalf("general inquiry confidence = %v, want 0.5", got.Confidence)
	}
}

func TestExtractEntitiesShapeAndCarat(t *testing.T) {
	e := ExtractEntities("show me a 1.5 carat oval diamond")
	if e.Shape != "oval" {
		t.Fatalf("shape = %q, want oval", e.Shape)
	}
	if e.CaratMin == nil || *e.CaratMin != 1.5 {
		t.Fatalf("caratMin = %v, want 1.5", e.CaratMin)
	}
}

func TestExtractEntitiesCaratRange(t *testing.T) {
	e := ExtractEntities("something between 1 to 2 carat")
	if e.CaratMin == nil || *e.CaratMin != 1 {
		t.Fatalf("caratMin = %v, want 1", e.CaratMin)
	}
	if e.CaratMax == nil || *e.CaratMax != 2 {
		t.Fatalf("caratMax = %v, want 2", e.CaratMax)
	}
}

func TestExtractEntitiesPrice(t *testing.T) {
	e := ExtractEntities("round diamonds under $10,000 and over 2,000")
	if e.PriceMax == nil || *e.PriceMax != 10000 {
		t.Fatalf("priceMax = %v, want 10000", e.PriceMax)
	}
	if e.PriceMin == nil || *e.PriceMin != 2000 {
		t.Fatalf("priceMin = %v, want 2000", e.PriceMin)
	}
}

func TestExtractEntitiesColorAndClarity(t *testing.T) {
	e := ExtractEntities("F color VS1 cushion diamond")
	if e.Color != "F" {
		t.Fatalf("color = %q, want F", e.Color)
	}
	if e.Clarity != "VS1" {
		t.Fatalf("clarity = %q, want VS1", e.Clarity)
	}
	if e.Shape != "cushion" {
		t.Fatalf("shape = %q, want cushion", e.Shape)
	}
}

func TestClassifyAcceptsModelDesignWithGIAVerdict(t *testing.T) {
	client := newImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		verdict := `{\"intent\": \"design_with_gia\", \"confidence\": 0.95, \"entities\": {}}`
		fmt.Fprintf(w, `{"choices": [{"message": {"content": "%s"}}]}`, verdict)
	})
	classifier := NewLLMClassifier(client)

	got := classifier.Classify(context.Background(),
		"design a ring with my diamond", SessionContext{HasDiamond: true})
	if got.Intent != domain.IntentDesignWithGIA {
		t.Fatalf("intent = %v, want design_with_gia", got.Intent)
	}
	if got.Confidence != 0.95 {
		t.Fatalf("confidence = %v, want 0.95", got.Confidence)
	}
}

func TestExtractJSONStripsFences(t *testing.T) {
	raw := "```json\n{\"intent\": \"search\"}\n```"
	got := extractJSON(raw)
	if got != `{"intent": "search"}` {
		t.Fatalf("extractJSON = %q", got)
	}
}
