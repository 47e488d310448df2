package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"diamondbot/internal/util"
)

// ErrNoCertificateNumber means the document was readable but no report
// number could be found. Without one the grading data is untrustworthy.
var ErrNoCertificateNumber = errors.New("no certificate number found")

// CertificateData is what a grading report yields after extraction.
type CertificateData struct {
	CertificateNumber string  `json:"certificateNumber"`
	Shape             string  `json:"shape,omitempty"`
	Carat             float64 `json:"carat,omitempty"`
	ColorType         string  `json:"colorType,omitempty"`
	PrimaryHue        string  `json:"primaryHue,omitempty"`
	Modifier          string  `json:"modifier,omitempty"`
	Intensity         string  `json:"intensity,omitempty"`
	Clarity           string  `json:"clarity,omitempty"`
	Cut               string  `json:"cut,omitempty"`
	Polish            string  `json:"polish,omitempty"`
	Symmetry          string  `json:"symmetry,omitempty"`
	Fluorescence      string  `json:"fluorescence,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
}

// CertificateExtractor parses GIA grading reports. PDFs get a cheap local
// text pass first; scanned documents and images go to the vision model.
type CertificateExtractor struct {
	client *Client
}

func NewCertificateExtractor(client *Client) *CertificateExtractor {
	return &CertificateExtractor{client: client}
}

// ExtractFromPDF reads a certificate PDF. When the embedded text layer
// carries the report, the vision model is skipped entirely.
func (e *CertificateExtractor) ExtractFromPDF(ctx context.Context, data []byte, fallbackImageURL string) (CertificateData, error) {
	logger := util.LoggerFromContext(ctx)

	if text, err := pdfText(data); err == nil && strings.TrimSpace(text) != "" {
		if cert, ok := parseCertificateText(text); ok {
			cert.Confidence = 0.95
			return cert, nil
		}
		logger.Debug("pdf text layer present but not parseable, trying vision model")
	}
	if fallbackImageURL == "" {
		return CertificateData{}, ErrNoCertificateNumber
	}
	return e.ExtractFromImage(ctx, fallbackImageURL)
}

// ExtractFromImage asks the vision model to read a photographed report.
func (e *CertificateExtractor) ExtractFromImage(ctx context.Context, imageURL string) (CertificateData, error) {
	raw, err := e.client.ChatCompletion(ctx, []ChatMessage{
		TextMessage("system", extractorSystemPrompt),
		VisionMessage("Read this diamond grading report and return the JSON.", imageURL),
	}, 0, 500)
	if err != nil {
		return CertificateData{}, fmt.Errorf("vision extraction: %w", err)
	}

	var cert CertificateData
	if err := json.Unmarshal([]byte(extractJSON(raw)), &cert); err != nil {
		return CertificateData{}, fmt.Errorf("decode extraction result: %w", err)
	}
	cert.CertificateNumber = strings.TrimSpace(cert.CertificateNumber)
	if cert.CertificateNumber == "" {
		return CertificateData{}, ErrNoCertificateNumber
	}
	if cert.Confidence <= 0 || cert.Confidence > 1 {
		cert.Confidence = 0.8
	}
	if cert.ColorType == "" {
		cert.ColorType = "white"
	}
	return cert, nil
}

const extractorSystemPrompt = `You read GIA diamond grading reports from images.
Reply with JSON only: {"certificateNumber": "...", "shape": "...", "carat": 0.0,
"colorType": "white|fancy", "primaryHue": "...", "modifier": "...", "intensity": "...",
"clarity": "...", "cut": "...", "polish": "...", "symmetry": "...",
"fluorescence": "...", "confidence": 0.0}.
For white diamonds primaryHue is the letter grade. If no report number is
visible, return {"certificateNumber": ""}.`

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			util.LoggerFromContext(context.Background()).Debug("pdf page text failed",
				slog.Int("page", i), slog.String("error", err.Error()))
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

var (
	reportNumberRe = regexp.MustCompile(`(?i)(?:GIA\s+)?Report\s*(?:Number|No\.?)?\s*[:#]?\s*(\d{7,10})`)
	caratWeightRe  = regexp.MustCompile(`(?i)Carat\s+Weight\s*[:#]?\s*(\d+(?:\.\d+)?)`)
	shapeTextRe    = regexp.MustCompile(`(?i)Shape(?:\s+and\s+Cutting\s+Style)?\s*[:#]?\s*([A-Za-z]+)`)
	colorGradeRe   = regexp.MustCompile(`(?i)Color\s+Grade\s*[:#]?\s*([D-Z])\b`)
	fancyColorRe   = regexp.MustCompile(`(?i)Color\s+Grade\s*[:#]?\s*Fancy\s+([A-Za-z ]+)`)
	clarityGradeRe = regexp.MustCompile(`(?i)Clarity\s+Grade\s*[:#]?\s*(FL|IF|VVS1|VVS2|VS1|VS2|SI1|SI2|I1|I2|I3)`)
	cutGradeRe     = regexp.MustCompile(`(?i)Cut\s+Grade\s*[:#]?\s*(Excellent|Very\s+Good|Good|Fair|Poor)`)
	polishRe       = regexp.MustCompile(`(?i)Polish\s*[:#]?\s*(Excellent|Very\s+Good|Good|Fair|Poor)`)
	symmetryRe     = regexp.MustCompile(`(?i)Symmetry\s*[:#]?\s*(Excellent|Very\s+Good|Good|Fair|Poor)`)
	fluorescenceRe = regexp.MustCompile(`(?i)Fluorescence\s*[:#]?\s*(None|Faint|Medium|Strong|Very\s+Strong)`)
)

func parseCertificateText(text string) (CertificateData, bool) {
	m := reportNumberRe.FindStringSubmatch(text)
	if m == nil {
		return CertificateData{}, false
	}
	cert := CertificateData{CertificateNumber: m[1], ColorType: "white"}

	if m := caratWeightRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			cert.Carat = v
		}
	}
	if m := shapeTextRe.FindStringSubmatch(text); m != nil {
		cert.Shape = strings.ToLower(m[1])
	}
	if m := fancyColorRe.FindStringSubmatch(text); m != nil {
		cert.ColorType = "fancy"
		words := strings.Fields(strings.TrimSpace(m[1]))
		// the last word is the hue, anything before it is intensity
		if len(words) > 0 {
			cert.PrimaryHue = strings.ToLower(words[len(words)-1])
			if len(words) > 1 {
				cert.Intensity = strings.ToLower(strings.Join(words[:len(words)-1], " "))
			}
		}
	} else if m := colorGradeRe.FindStringSubmatch(text); m != nil {
		cert.PrimaryHue = strings.ToUpper(m[1])
	}
	if m := clarityGradeRe.FindStringSubmatch(text); m != nil {
		cert.Clarity = strings.ToUpper(m[1])
	}
	if m := cutGradeRe.FindStringSubmatch(text); m != nil {
		cert.Cut = normalizeGradeWord(m[1])
	}
	if m := polishRe.FindStringSubmatch(text); m != nil {
		cert.Polish = normalizeGradeWord(m[1])
	}
	if m := symmetryRe.FindStringSubmatch(text); m != nil {
		cert.Symmetry = normalizeGradeWord(m[1])
	}
	if m := fluorescenceRe.FindStringSubmatch(text); m != nil {
		cert.Fluorescence = normalizeGradeWord(m[1])
	}
	return cert, true
}

func normalizeGradeWord(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
