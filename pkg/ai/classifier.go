package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"diamondbot/internal/util"
	"diamondbot/pkg/domain"
)

// Entities are structured attributes pulled out of a free-form message.
// Zero values mean the attribute was not mentioned.
type Entities struct {
	Shape    string   `json:"shape,omitempty"`
	Color    string   `json:"color,omitempty"`
	Clarity  string   `json:"clarity,omitempty"`
	CaratMin *float64 `json:"caratMin,omitempty"`
	CaratMax *float64 `json:"caratMax,omitempty"`
	PriceMin *float64 `json:"priceMin,omitempty"`
	PriceMax *float64 `json:"priceMax,omitempty"`
}

// Classification is the routing verdict for one inbound message.
type Classification struct {
	Intent     domain.Intent
	Confidence float64
	Entities   Entities
}

// SessionContext carries the conversation facts that change how a
// message reads. A design request means something different once the
// user has a certified diamond on file.
type SessionContext struct {
	HasDiamond bool
	HasDesign  bool
}

// IntentClassifier decides what the user wants from a text message.
type IntentClassifier interface {
	Classify(ctx context.Context, text string, sctx SessionContext) Classification
}

// LLMClassifier asks the chat model for a JSON verdict and falls back to
// keyword rules when the model is unavailable or answers garbage.
type LLMClassifier struct {
	client *Client
}

func NewLLMClassifier(client *Client) *LLMClassifier {
	return &LLMClassifier{client: client}
}

const classifierSystemPrompt = `You classify WhatsApp messages sent to a diamond jewelry assistant.
Reply with JSON only, no prose: {"intent": "...", "confidence": 0.0, "entities": {...}}.
Valid intents: search, design_free_input, design_with_gia, design_edit, design_variation, listing_intent, general_inquiry, greeting.
Use design_with_gia only when the user wants jewelry built around their own certified diamond; otherwise a design request is design_free_input.
Entities may include: shape, color, clarity, caratMin, caratMax, priceMin, priceMax.
Shapes: round, oval, princess, cushion, emerald, pear, marquise, radiant, asscher, heart.`

type classifierVerdict struct {
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
}

func (c *LLMClassifier) Classify(ctx context.Context, text string, sctx SessionContext) Classification {
	logger := util.LoggerFromContext(ctx)

	messages := []ChatMessage{TextMessage("system", classifierSystemPrompt)}
	if note := sessionNote(sctx); note != "" {
		messages = append(messages, TextMessage("system", note))
	}
	messages = append(messages, TextMessage("user", text))

	raw, err := c.client.ChatCompletion(ctx, messages, 0, 300)
	if err != nil {
		logger.Warn("intent model unavailable, using keyword rules", slog.String("error", err.Error()))
		return ClassifyByKeywords(text, sctx)
	}

	var verdict classifierVerdict
	if err := json.Unmarshal([]byte(extractJSON(raw)), &verdict); err != nil {
		logger.Warn("intent model returned malformed json, using keyword rules",
			slog.String("error", err.Error()))
		return ClassifyByKeywords(text, sctx)
	}

	intent := domain.Intent(verdict.Intent)
	if !validClassifierIntent(intent) {
		return ClassifyByKeywords(text, sctx)
	}
	if verdict.Confidence <= 0 || verdict.Confidence > 1 {
		verdict.Confidence = 0.5
	}
	cls := Classification{Intent: intent, Confidence: verdict.Confidence, Entities: verdict.Entities}
	if cls.Entities == (Entities{}) {
		cls.Entities = ExtractEntities(text)
	}
	return cls
}

func validClassifierIntent(intent domain.Intent) bool {
	switch intent {
	case domain.IntentSearch, domain.IntentDesignFreeInput, domain.IntentDesignWithGIA,
		domain.IntentDesignEdit, domain.IntentDesignVariation, domain.IntentListing,
		domain.IntentGeneralInquiry, domain.IntentGreeting:
		return true
	}
	return false
}

func sessionNote(sctx SessionContext) string {
	switch {
	case sctx.HasDiamond && sctx.HasDesign:
		return "Context: the user has a certified diamond on file and at least one generated design."
	case sctx.HasDiamond:
		return "Context: the user has a certified diamond on file."
	case sctx.HasDesign:
		return "Context: the user has at least one generated design."
	}
	return ""
}

// extractJSON trims code fences and surrounding prose some models wrap
// around their JSON answer.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "{"); i >= 0 {
		if j := strings.LastIndex(raw, "}"); j > i {
			return raw[i : j+1]
		}
	}
	return raw
}

var (
	greetingWords  = []string{"hi", "hello", "hey", "hola", "shalom", "good morning", "good afternoon", "good evening"}
	variationWords = []string{"variation", "another one", "another version", "different style", "something else", "one more", "try again"}
	editWords      = []string{"change", "make it", "instead", "switch to", "replace", "adjust", "modify"}
	searchWords    = []string{"show me", "find", "search", "looking for", "do you have", "browse", "available"}
	designWords    = []string{"design", "create", "ring", "pendant", "necklace", "earring", "bracelet", "jewelry", "jewellery"}
	listingWords   = []string{"sell", "list my", "put up", "offer my"}
)

var diamondShapes = []string{"round", "oval", "princess", "cushion", "emerald", "pear", "marquise", "radiant", "asscher", "heart"}

// ClassifyByKeywords is the deterministic fallback. Ordering matters:
// variation and edit outrank search so a followup like "change the band"
// never reads as a fresh query.
func ClassifyByKeywords(text string, sctx SessionContext) Classification {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Classification{Intent: domain.IntentGeneralInquiry, Confidence: 0.5}
	}
	entities := ExtractEntities(text)

	for _, w := range greetingWords {
		if lower == w || strings.HasPrefix(lower, w+" ") || strings.HasPrefix(lower, w+",") {
			return Classification{Intent: domain.IntentGreeting, Confidence: 0.9, Entities: entities}
		}
	}
	if containsAny(lower, variationWords) {
		return Classification{Intent: domain.IntentDesignVariation, Confidence: 0.8, Entities: entities}
	}
	if containsAny(lower, editWords) {
		return Classification{Intent: domain.IntentDesignEdit, Confidence: 0.75, Entities: entities}
	}
	if containsAny(lower, listingWords) {
		return Classification{Intent: domain.IntentListing, Confidence: 0.8, Entities: entities}
	}
	if containsAny(lower, searchWords) && mentionsDiamond(lower) {
		return Classification{Intent: domain.IntentSearch, Confidence: 0.8, Entities: entities}
	}
	if containsAny(lower, designWords) {
		// A design request from someone with a certified diamond on file
		// means jewelry around that diamond.
		if sctx.HasDiamond {
			return Classification{Intent: domain.IntentDesignWithGIA, Confidence: 0.75, Entities: entities}
		}
		return Classification{Intent: domain.IntentDesignFreeInput, Confidence: 0.7, Entities: entities}
	}
	if mentionsDiamond(lower) {
		return Classification{Intent: domain.IntentSearch, Confidence: 0.6, Entities: entities}
	}
	return Classification{Intent: domain.IntentGeneralInquiry, Confidence: 0.5, Entities: entities}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func mentionsDiamond(lower string) bool {
	if strings.Contains(lower, "diamond") || strings.Contains(lower, "stone") {
		return true
	}
	for _, shape := range diamondShapes {
		if strings.Contains(lower, shape) {
			return true
		}
	}
	return false
}

var (
	caratRe      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:ct|carat)`)
	caratRangeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:-|to)\s*(\d+(?:\.\d+)?)\s*(?:ct|carat)`)
	priceUnderRe = regexp.MustCompile(`(?:under|below|less than|max)\s*\$?\s*([\d,]+)`)
	priceOverRe  = regexp.MustCompile(`(?:over|above|more than|min)\s*\$?\s*([\d,]+)`)
	colorRe      = regexp.MustCompile(`(?i)\b([D-Jd-j])\s*colou?r\b`)
	clarityRe    = regexp.MustCompile(`\b(FL|IF|VVS1|VVS2|VS1|VS2|SI1|SI2|I1|I2|I3)\b`)
)

// ExtractEntities pulls diamond attributes out of free text with plain
// pattern matching. Used standalone by the fallback path and to fill gaps
// the model leaves.
func ExtractEntities(text string) Entities {
	lower := strings.ToLower(text)
	var e Entities

	for _, shape := range diamondShapes {
		if strings.Contains(lower, shape) {
			e.Shape = shape
			break
		}
	}
	if m := caratRangeRe.FindStringSubmatch(lower); m != nil {
		if lo, err := strconv.ParseFloat(m[1], 64); err == nil {
			e.CaratMin = &lo
		}
		if hi, err := strconv.ParseFloat(m[2], 64); err == nil {
			e.CaratMax = &hi
		}
	} else if m := caratRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			e.CaratMin = &v
		}
	}
	if m := priceUnderRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			e.PriceMax = &v
		}
	}
	if m := priceOverRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			e.PriceMin = &v
		}
	}
	if m := colorRe.FindStringSubmatch(text); m != nil {
		e.Color = strings.ToUpper(m[1])
	}
	if m := clarityRe.FindStringSubmatch(strings.ToUpper(text)); m != nil {
		e.Clarity = m[1]
	}
	return e
}
