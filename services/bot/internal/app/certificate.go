package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"diamondbot/internal/util"
	"diamondbot/pkg/ai"
	"diamondbot/pkg/domain"
)

// handleDocument runs certificate ingestion for an inbound PDF: download,
// archive to object storage, extract, and require a report number before
// any diamond record exists.
func (a *App) handleDocument(ctx context.Context, user domain.User, session domain.Session, ev Event) {
	logger := util.LoggerFromContext(ctx)

	data, mime, err := a.fetcher.DownloadMedia(ctx, ev.MediaID)
	if err != nil {
		logger.Error("certificate download failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgCertificateFailed)
		return
	}
	fileURL, upload, err := a.archiveUpload(ctx, user, data, mime, ev.Filename)
	if err != nil {
		logger.Error("certificate archive failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgCertificateFailed)
		return
	}

	a.sendText(ctx, user, "Reading your certificate... 🔍")

	var fallback string
	if strings.HasPrefix(mime, "image/") {
		fallback = fileURL
	}
	cert, err := a.extractor.ExtractFromPDF(ctx, data, fallback)
	a.ingestCertificate(ctx, user, upload, cert, err)
}

// handleImage routes an inbound photo: during media collection it joins
// the listing draft, otherwise it is treated as a photographed certificate.
func (a *App) handleImage(ctx context.Context, user domain.User, session domain.Session, ev Event) {
	logger := util.LoggerFromContext(ctx)

	data, mime, err := a.fetcher.DownloadMedia(ctx, ev.MediaID)
	if err != nil {
		logger.Error("image download failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}
	fileURL, upload, err := a.archiveUpload(ctx, user, data, mime, ev.Filename)
	if err != nil {
		logger.Error("image archive failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}

	if session.Step == domain.StepListingMedia {
		// listing photos are done once stored; no extraction follows
		if err := a.store.SetUploadStatus(upload.ID, domain.UploadStatusUploaded, ""); err != nil {
			logger.Warn("finalize upload status failed", slog.String("error", err.Error()))
		}
		a.listingImage(ctx, user, session, fileURL)
		return
	}

	a.sendText(ctx, user, "Reading your certificate... 🔍")
	cert, err := a.extractor.ExtractFromImage(ctx, fileURL)
	a.ingestCertificate(ctx, user, upload, cert, err)
}

// archiveUpload stores the raw media and records an UploadRecord.
func (a *App) archiveUpload(ctx context.Context, user domain.User, data []byte, mime, filename string) (string, domain.Upload, error) {
	key := fmt.Sprintf("uploads/%s/%s%s", user.ID, uuid.NewString(), extensionFor(mime, filename))
	fileURL, err := a.media.PutBytes(ctx, key, data, mime)
	if err != nil {
		return "", domain.Upload{}, fmt.Errorf("store media: %w", err)
	}
	upload := domain.Upload{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		FileURL:   fileURL,
		FileType:  mime,
		Status:    domain.UploadStatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateUpload(upload); err != nil {
		return "", domain.Upload{}, fmt.Errorf("record upload: %w", err)
	}
	return fileURL, upload, nil
}

// ingestCertificate turns an extraction result into a diamond record, or
// a rejection when the report number is missing. A missing number is a
// normal negative outcome, not an error path.
func (a *App) ingestCertificate(ctx context.Context, user domain.User, upload domain.Upload, cert ai.CertificateData, extractErr error) {
	logger := util.LoggerFromContext(ctx)

	if extractErr != nil {
		reason := msgCertificateFailed
		if errors.Is(extractErr, ai.ErrNoCertificateNumber) {
			reason = msgCertificateRejected
		} else {
			logger.Error("certificate extraction failed", slog.String("error", extractErr.Error()))
		}
		a.markUploadFailed(ctx, upload.ID, extractErr.Error())
		a.sendText(ctx, user, reason)
		return
	}
	if cert.CertificateNumber == "" {
		a.markUploadFailed(ctx, upload.ID, ai.ErrNoCertificateNumber.Error())
		a.sendText(ctx, user, msgCertificateRejected)
		return
	}

	diamond := domain.Diamond{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		UploadID:          upload.ID,
		Shape:             cert.Shape,
		Carat:             cert.Carat,
		ColorType:         cert.ColorType,
		PrimaryHue:        cert.PrimaryHue,
		Modifier:          cert.Modifier,
		Intensity:         cert.Intensity,
		Clarity:           cert.Clarity,
		Cut:               cert.Cut,
		Polish:            cert.Polish,
		Symmetry:          cert.Symmetry,
		Fluorescence:      cert.Fluorescence,
		CertificateNumber: cert.CertificateNumber,
		ParsedConfidence:  cert.Confidence,
		CreatedAt:         time.Now().UTC(),
	}
	if err := a.store.CreateDiamond(diamond); err != nil {
		logger.Error("persist diamond failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}
	if err := a.store.SetUploadStatus(upload.ID, domain.UploadStatusUploaded, ""); err != nil {
		logger.Warn("finalize upload status failed", slog.String("error", err.Error()))
	}
	_, err := a.sessions.Save(user.ID, domain.SessionUpdate{
		Step:          stepPtr(domain.StepGIAMenu),
		LastDiamondID: strPtr(diamond.ID),
	})
	if err != nil {
		logger.Error("advance to gia menu failed", slog.String("error", err.Error()))
	}

	a.sendText(ctx, user, diamondSummary(diamond))
	a.sendGIAMenu(ctx, user)
}

func (a *App) markUploadFailed(ctx context.Context, uploadID, reason string) {
	if err := a.store.SetUploadStatus(uploadID, domain.UploadStatusFailed, reason); err != nil {
		util.LoggerFromContext(ctx).Warn("mark upload failed errored", slog.String("error", err.Error()))
	}
}

func diamondSummary(d domain.Diamond) string {
	var sb strings.Builder
	sb.WriteString("Certificate read successfully! ✅\n\n")
	sb.WriteString(fmt.Sprintf("📋 GIA Report %s\n", d.CertificateNumber))
	if d.Shape != "" {
		sb.WriteString(fmt.Sprintf("Shape: %s\n", titleWord(d.Shape)))
	}
	if d.Carat > 0 {
		sb.WriteString(fmt.Sprintf("Carat: %.2f\n", d.Carat))
	}
	if color := colorLabel(d); color != "" {
		sb.WriteString(fmt.Sprintf("Color: %s\n", color))
	}
	if d.Clarity != "" {
		sb.WriteString(fmt.Sprintf("Clarity: %s\n", d.Clarity))
	}
	if d.Cut != "" {
		sb.WriteString(fmt.Sprintf("Cut: %s\n", titleWord(d.Cut)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func colorLabel(d domain.Diamond) string {
	if strings.EqualFold(d.ColorType, "fancy") {
		parts := []string{"Fancy"}
		if d.Intensity != "" {
			parts = append(parts, titleWord(d.Intensity))
		}
		if d.Modifier != "" {
			parts = append(parts, titleWord(d.Modifier))
		}
		if d.PrimaryHue != "" {
			parts = append(parts, titleWord(d.PrimaryHue))
		}
		return strings.Join(parts, " ")
	}
	return d.PrimaryHue
}

func titleWord(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func extensionFor(mime, filename string) string {
	if ext := path.Ext(filename); ext != "" {
		return ext
	}
	switch mime {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "audio/ogg":
		return ".ogg"
	}
	return ""
}
