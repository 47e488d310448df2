package ai

import (
	"context"
	"fmt"
	"strings"

	"diamondbot/pkg/domain"
)

// DesignResult is the outcome of one rendering attempt.
type DesignResult struct {
	Success  bool
	ImageURL string
	Prompt   string
	Error    string
}

// Designer produces jewelry renders. Prompt construction is deterministic
// so edits and variations stay anchored to the prior prompt.
type Designer struct {
	client *Client
}

func NewDesigner(client *Client) *Designer {
	return &Designer{client: client}
}

// JewelryTypeFor picks the jewelry style a stone suits best, by carat
// weight and shape.
func JewelryTypeFor(carat float64, shape string) string {
	shape = strings.ToLower(strings.TrimSpace(shape))
	switch {
	case carat >= 2.0:
		return "solitaire engagement ring"
	case carat >= 1.0:
		if shape == "round" || shape == "oval" {
			return "halo engagement ring"
		}
		return "three-stone ring"
	case carat >= 0.5:
		if shape == "round" {
			return "pendant necklace"
		}
		return "elegant ring"
	default:
		return "stud earrings"
	}
}

// MetalFor maps a white color grade to a flattering metal. Whiter stones
// go with white metals, warmer stones with yellow and rose gold.
func MetalFor(grade string) string {
	switch strings.ToUpper(strings.TrimSpace(grade)) {
	case "D", "E", "F":
		return "platinum or white gold"
	case "G", "H":
		return "white gold"
	case "I", "J":
		return "yellow gold"
	default:
		return "rose gold"
	}
}

func metalForDiamond(d domain.Diamond) string {
	if strings.EqualFold(d.ColorType, "fancy") {
		// fancy colored stones read best against warm metal
		return "rose gold"
	}
	return MetalFor(d.PrimaryHue)
}

func colorDescription(d domain.Diamond) string {
	if strings.EqualFold(d.ColorType, "fancy") {
		parts := []string{}
		if d.Intensity != "" {
			parts = append(parts, strings.ToLower(d.Intensity))
		}
		if d.Modifier != "" {
			parts = append(parts, strings.ToLower(d.Modifier))
		}
		if d.PrimaryHue != "" {
			parts = append(parts, strings.ToLower(d.PrimaryHue))
		}
		if len(parts) == 0 {
			return "fancy colored"
		}
		return "fancy " + strings.Join(parts, " ")
	}
	if d.PrimaryHue != "" {
		return d.PrimaryHue + " color"
	}
	return "white"
}

func qualityDescription(clarity string) string {
	switch strings.ToUpper(strings.TrimSpace(clarity)) {
	case "FL", "IF":
		return "flawless, exceptional brilliance"
	case "VVS1", "VVS2":
		return "near flawless with outstanding clarity"
	case "VS1", "VS2":
		return "excellent clarity"
	case "SI1", "SI2":
		return "eye-clean with good clarity"
	default:
		return "beautiful natural character"
	}
}

// PromptFromDiamond builds a full render prompt from graded attributes.
func PromptFromDiamond(d domain.Diamond) string {
	jewelry := JewelryTypeFor(d.Carat, d.Shape)
	shape := strings.ToLower(d.Shape)
	if shape == "" {
		shape = "round"
	}
	return fmt.Sprintf(
		"Professional product photograph of a %s featuring a %.2f carat %s cut %s diamond, %s, set in %s. Studio lighting, white background, high detail.",
		jewelry, d.Carat, shape, colorDescription(d), qualityDescription(d.Clarity), metalForDiamond(d))
}

// PromptFromText builds a render prompt from a free-form description.
func PromptFromText(input string) string {
	return fmt.Sprintf(
		"Professional product photograph of custom diamond jewelry: %s. Studio lighting, white background, high detail.",
		strings.TrimSpace(input))
}

// DesignFromDiamond renders jewelry matched automatically to the stone.
func (d *Designer) DesignFromDiamond(ctx context.Context, diamond domain.Diamond) DesignResult {
	return d.render(ctx, PromptFromDiamond(diamond))
}

// DesignFromText renders jewelry from the user's own description.
func (d *Designer) DesignFromText(ctx context.Context, input string) DesignResult {
	if strings.TrimSpace(input) == "" {
		return DesignResult{Error: "empty design description"}
	}
	return d.render(ctx, PromptFromText(input))
}

// DesignWithDiamond renders the user's idea built around their graded
// stone, keeping the stone's attributes in the prompt.
func (d *Designer) DesignWithDiamond(ctx context.Context, diamond domain.Diamond, input string) DesignResult {
	shape := strings.ToLower(diamond.Shape)
	if shape == "" {
		shape = "round"
	}
	prompt := fmt.Sprintf(
		"Professional product photograph of custom diamond jewelry: %s. Centerpiece is a %.2f carat %s cut diamond, %s. Studio lighting, white background, high detail.",
		strings.TrimSpace(input), diamond.Carat, shape, qualityDescription(diamond.Clarity))
	return d.render(ctx, prompt)
}

// EditDesign applies a requested change on top of a previous prompt.
func (d *Designer) EditDesign(ctx context.Context, previousPrompt, change string) DesignResult {
	if strings.TrimSpace(previousPrompt) == "" {
		return DesignResult{Error: "no previous design to edit"}
	}
	prompt := fmt.Sprintf("%s Updated request: %s.", previousPrompt, strings.TrimSpace(change))
	return d.render(ctx, prompt)
}

// DesignVariation reinterprets a previous prompt in a fresh style.
func (d *Designer) DesignVariation(ctx context.Context, previousPrompt string) DesignResult {
	if strings.TrimSpace(previousPrompt) == "" {
		return DesignResult{Error: "no previous design for a variation"}
	}
	prompt := fmt.Sprintf("%s Alternative interpretation with a different artistic style and setting.", previousPrompt)
	return d.render(ctx, prompt)
}

// Design360View renders a rotating showcase view of an existing design.
func (d *Designer) Design360View(ctx context.Context, previousPrompt string) DesignResult {
	if strings.TrimSpace(previousPrompt) == "" {
		return DesignResult{Error: "no design to showcase"}
	}
	prompt := fmt.Sprintf("%s Shown as a 360 degree turntable view, multiple angles in one frame.", previousPrompt)
	return d.render(ctx, prompt)
}

func (d *Designer) render(ctx context.Context, prompt string) DesignResult {
	url, err := d.client.GenerateImage(ctx, prompt)
	if err != nil {
		return DesignResult{Prompt: prompt, Error: err.Error()}
	}
	return DesignResult{Success: true, ImageURL: url, Prompt: prompt}
}
