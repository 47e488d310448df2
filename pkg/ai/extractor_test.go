package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

const sampleReportText = `
GIA NATURAL DIAMOND GRADING REPORT
GIA Report Number: 2141438171
Shape and Cutting Style: Round Brilliant
Carat Weight: 1.51
Color Grade: F
Clarity Grade: VS1
Cut Grade: Excellent
Polish: Excellent
Symmetry: Very Good
Fluorescence: None
`

func TestParseCertificateText(t *testing.T) {
	cert, ok := parseCertificateText(sampleReportText)
	if !ok {
		t.Fatal("expected parse success")
	}
	if cert.CertificateNumber != "2141438171" {
		t.Errorf("certificateNumber = %q", cert.CertificateNumber)
	}
	if cert.Shape != "round" {
		t.Errorf("shape = %q, want round", cert.Shape)
	}
	if cert.Carat != 1.51 {
		t.Errorf("carat = %v, want 1.51", cert.Carat)
	}
	if cert.ColorType != "white" || cert.PrimaryHue != "F" {
		t.Errorf("color = %q/%q, want white/F", cert.ColorType, cert.PrimaryHue)
	}
	if cert.Clarity != "VS1" {
		t.Errorf("clarity = %q", cert.Clarity)
	}
	if cert.Cut != "excellent" || cert.Polish != "excellent" {
		t.Errorf("cut/polish = %q/%q", cert.Cut, cert.Polish)
	}
	if cert.Symmetry != "very good" {
		t.Errorf("symmetry = %q", cert.Symmetry)
	}
	if cert.Fluorescence != "none" {
		t.Errorf("fluorescence = %q", cert.Fluorescence)
	}
}

func TestParseCertificateTextFancyColor(t *testing.T) {
	text := `
GIA Report Number: 5201234567
Shape: Radiant
Carat Weight: 1.02
Color Grade: Fancy Vivid Yellow
Clarity Grade: VS2
`
	cert, ok := parseCertificateText(text)
	if !ok {
		t.Fatal("expected parse success")
	}
	if cert.ColorType != "fancy" {
		t.Errorf("colorType = %q, want fancy", cert.ColorType)
	}
	if cert.PrimaryHue != "yellow" {
		t.Errorf("primaryHue = %q, want yellow", cert.PrimaryHue)
	}
	if cert.Intensity != "vivid" {
		t.Errorf("intensity = %q, want vivid", cert.Intensity)
	}
}

func TestParseCertificateTextRequiresReportNumber(t *testing.T) {
	if _, ok := parseCertificateText("Carat Weight: 1.00\nColor Grade: G"); ok {
		t.Fatal("parse should fail without a report number")
	}
}

func TestExtractFromImage(t *testing.T) {
	client := newImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		payload := `{"certificateNumber": "6214567890", "shape": "oval", "carat": 1.2, "colorType": "white", "primaryHue": "G", "clarity": "SI1", "confidence": 0.85}`
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": payload}},
			},
		})
	})
	e := NewCertificateExtractor(client)

	cert, err := e.ExtractFromImage(context.Background(), "https://media.example/report.jpg")
	if err != nil {
		t.Fatalf("ExtractFromImage: %v", err)
	}
	if cert.CertificateNumber != "6214567890" {
		t.Errorf("certificateNumber = %q", cert.CertificateNumber)
	}
	if cert.Confidence != 0.85 {
		t.Errorf("confidence = %v", cert.Confidence)
	}
}

func TestExtractFromImageMissingNumber(t *testing.T) {
	client := newImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": `{"certificateNumber": ""}`}},
			},
		})
	})
	e := NewCertificateExtractor(client)

	_, err := e.ExtractFromImage(context.Background(), "https://media.example/blurry.jpg")
	if !errors.Is(err, ErrNoCertificateNumber) {
		t.Fatalf("err = %v, want ErrNoCertificateNumber", err)
	}
}

func TestExtractFromPDFNoTextNoFallback(t *testing.T) {
	e := NewCertificateExtractor(nil)
	if _, err := e.ExtractFromPDF(context.Background(), []byte("not a pdf"), ""); err == nil {
		t.Fatal("expected error for unreadable document with no fallback image")
	}
}
