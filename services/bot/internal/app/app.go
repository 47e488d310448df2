package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"diamondbot/internal/util"
	"diamondbot/pkg/ai"
	"diamondbot/pkg/domain"
	"diamondbot/pkg/storage"
	"diamondbot/pkg/store"
)

// Channel sends outbound messages. Send failures are logged, never
// surfaced to the conversation as fatal.
type Channel interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []domain.Button) error
	SendList(ctx context.Context, to, body, buttonTitle string, sections []domain.ListSection) error
	SendImage(ctx context.Context, to, imageURL, caption string) error
}

// MediaFetcher resolves inbound provider media ids to bytes.
type MediaFetcher interface {
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// Generator renders jewelry designs.
type Generator interface {
	DesignFromDiamond(ctx context.Context, diamond domain.Diamond) ai.DesignResult
	DesignFromText(ctx context.Context, input string) ai.DesignResult
	DesignWithDiamond(ctx context.Context, diamond domain.Diamond, input string) ai.DesignResult
	EditDesign(ctx context.Context, previousPrompt, change string) ai.DesignResult
	DesignVariation(ctx context.Context, previousPrompt string) ai.DesignResult
	Design360View(ctx context.Context, previousPrompt string) ai.DesignResult
}

// Extractor parses grading certificates out of documents and photos.
type Extractor interface {
	ExtractFromPDF(ctx context.Context, data []byte, fallbackImageURL string) (ai.CertificateData, error)
	ExtractFromImage(ctx context.Context, imageURL string) (ai.CertificateData, error)
}

// Transcriber converts voice notes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (ai.Transcription, error)
}

// Assistant answers free-form questions about diamonds and jewelry.
type Assistant interface {
	Reply(ctx context.Context, question string) (string, error)
}

// Event is the normalized inbound shape the dispatcher consumes, whatever
// the provider payload looked like.
type Event struct {
	MessageID string
	From      string
	Name      string
	Kind      domain.MessageKind
	Text      string
	MediaID   string
	Filename  string
	MimeType  string
	ReplyID   string
}

type searchPage struct {
	search store.ListingSearch
	offset int
}

// App is the dispatcher: it resolves the user, loads the session, routes
// the event and runs the selected flow handler.
type App struct {
	store       store.Store
	sessions    *SessionStore
	media       storage.ObjectStore
	channel     Channel
	fetcher     MediaFetcher
	classifier  ai.IntentClassifier
	generator   Generator
	extractor   Extractor
	transcriber Transcriber
	assistant   Assistant

	voiceThreshold float64

	mu         sync.Mutex
	lastSearch map[string]searchPage
}

type Config struct {
	Store          store.Store
	Media          storage.ObjectStore
	Channel        Channel
	Fetcher        MediaFetcher
	Classifier     ai.IntentClassifier
	Generator      Generator
	Extractor      Extractor
	Transcriber    Transcriber
	Assistant      Assistant
	VoiceThreshold float64
}

func New(cfg Config) *App {
	threshold := cfg.VoiceThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	return &App{
		store:          cfg.Store,
		sessions:       NewSessionStore(cfg.Store),
		media:          cfg.Media,
		channel:        cfg.Channel,
		fetcher:        cfg.Fetcher,
		classifier:     cfg.Classifier,
		generator:      cfg.Generator,
		extractor:      cfg.Extractor,
		transcriber:    cfg.Transcriber,
		assistant:      cfg.Assistant,
		voiceThreshold: threshold,
		lastSearch:     make(map[string]searchPage),
	}
}

// HandleEvent processes one inbound event to completion. Handler errors
// are absorbed into user-facing failure messages; the session step is
// never reset on error so the user can retry the same input.
func (a *App) HandleEvent(ctx context.Context, ev Event) error {
	logger := util.LoggerFromContext(ctx).With(slog.String("from", ev.From), slog.String("kind", string(ev.Kind)))
	ctx = util.ContextWithLogger(ctx, logger)

	user, err := a.resolveUser(ev)
	if err != nil {
		return err
	}
	a.logInbound(ctx, user.ID, ev)

	session, err := a.sessions.Load(user.ID)
	if err != nil {
		logger.Error("load session failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return err
	}

	switch ev.Kind {
	case domain.MessageInteractive:
		a.handleInteractive(ctx, user, session, ev)
	case domain.MessageAudio:
		a.handleAudio(ctx, user, session, ev)
	case domain.MessageImage:
		a.handleImage(ctx, user, session, ev)
	case domain.MessageDocument:
		a.handleDocument(ctx, user, session, ev)
	default:
		a.handleText(ctx, user, session, ev.Text)
	}
	return nil
}

func (a *App) resolveUser(ev Event) (domain.User, error) {
	user, ok, err := a.store.GetUserByAddress(ev.From)
	if err != nil {
		return domain.User{}, err
	}
	if ok {
		return user, nil
	}
	user = domain.User{
		ID:              uuid.NewString(),
		ChannelAddress:  ev.From,
		DisplayName:     ev.Name,
		LastInteraction: time.Now().UTC(),
		CreatedAt:       time.Now().UTC(),
	}
	if err := a.store.CreateUser(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// handleText classifies free text and dispatches through the router.
func (a *App) handleText(ctx context.Context, user domain.User, session domain.Session, text string) {
	cls := a.classifier.Classify(ctx, text, ai.SessionContext{
		HasDiamond: session.LastDiamondID != "",
		HasDesign:  session.LastDesignID != "",
	})
	a.touch(ctx, user.ID, string(cls.Intent))

	switch route(cls.Intent, cls.Confidence, session) {
	case refListingPrice:
		a.listingPrice(ctx, user, session, text)
	case refListingContact:
		a.listingContact(ctx, user, session, text)
	case refListingMedia:
		a.listingMediaText(ctx, user, session, text)
	case refDesignEdit:
		a.designEdit(ctx, user, session, text)
	case refDesignVariation:
		a.designVariation(ctx, user, session)
	case refMissingDesign:
		a.sendText(ctx, user, msgNoDesignYet)
	case refMissingDiamond:
		a.sendText(ctx, user, msgNoDiamondYet)
	case refSearch:
		a.searchListings(ctx, user, cls.Entities, 0)
	case refDesignFree:
		a.designFree(ctx, user, text)
	case refDesignWithGIA:
		a.designWithGIA(ctx, user, session, text)
	case refListingStart:
		a.listingStart(ctx, user, session)
	case refGreeting:
		a.greet(ctx, user)
	case refGeneralInquiry:
		a.generalInquiry(ctx, user, text)
	default:
		a.sendMainMenu(ctx, user)
	}
}

// handleInteractive resolves the reply id into an enumerated action at
// the boundary; raw id strings never reach handler logic.
func (a *App) handleInteractive(ctx context.Context, user domain.User, session domain.Session, ev Event) {
	action, arg := domain.ParseMenuAction(ev.ReplyID)
	a.touch(ctx, user.ID, string(action))

	switch action {
	case domain.ActionUploadCertificate:
		a.sendText(ctx, user, msgAskForCertificate)
	case domain.ActionDesignJewelry:
		if session.LastDiamondID != "" {
			a.designAuto(ctx, user, session)
			return
		}
		a.sendText(ctx, user, msgAskDesignIdea)
	case domain.ActionSearchDiamonds:
		a.sendText(ctx, user, msgAskSearchCriteria)
	case domain.ActionGeneralInquiry:
		a.sendText(ctx, user, msgAskQuestion)
	case domain.ActionListForSale:
		a.listingStart(ctx, user, session)
	case domain.ActionImproveDiamond:
		a.improveDiamond(ctx, user, session)
	case domain.ActionTryVariation:
		if session.LastDesignID == "" {
			a.sendText(ctx, user, msgNoDesignYet)
			return
		}
		a.designVariation(ctx, user, session)
	case domain.ActionView360:
		a.design360(ctx, user, arg)
	case domain.ActionViewMoreResults:
		a.searchMore(ctx, user)
	default:
		a.sendMainMenu(ctx, user)
	}
}

// handleAudio transcribes a voice note and re-dispatches it as text when
// the transcript is trustworthy.
func (a *App) handleAudio(ctx context.Context, user domain.User, session domain.Session, ev Event) {
	logger := util.LoggerFromContext(ctx)
	if a.transcriber == nil || a.fetcher == nil {
		a.sendText(ctx, user, msgVoiceUnsupported)
		return
	}
	audio, _, err := a.fetcher.DownloadMedia(ctx, ev.MediaID)
	if err != nil {
		logger.Error("voice download failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgVoiceFailed)
		return
	}
	filename := ev.Filename
	if filename == "" {
		filename = "voice.ogg"
	}
	tr, err := a.transcriber.Transcribe(ctx, filename, audio)
	if err != nil || strings.TrimSpace(tr.Text) == "" {
		if err != nil {
			logger.Error("transcription failed", slog.String("error", err.Error()))
		}
		a.sendText(ctx, user, msgVoiceFailed)
		return
	}
	if tr.Confidence < a.voiceThreshold {
		a.sendText(ctx, user, "I think you said: \""+tr.Text+"\"\n\nI'm not fully sure I heard that right. Please type your request instead.")
		return
	}
	a.sendText(ctx, user, "🎤 I heard: \""+tr.Text+"\"")
	a.handleText(ctx, user, session, tr.Text)
}

func (a *App) touch(ctx context.Context, userID, lastIntent string) {
	if err := a.store.TouchUser(userID, lastIntent); err != nil {
		util.LoggerFromContext(ctx).Warn("touch user failed", slog.String("error", err.Error()))
	}
}

// logInbound appends the inbound message to the audit trail before any
// handler runs.
func (a *App) logInbound(ctx context.Context, userID string, ev Event) {
	msg := domain.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Direction: domain.DirectionInbound,
		Kind:      ev.Kind,
		Content:   ev.Text,
		CreatedAt: time.Now().UTC(),
	}
	if ev.Kind == domain.MessageInteractive {
		msg.Content = ev.ReplyID
	}
	if ev.MessageID != "" {
		msg.Meta = map[string]string{"providerMessageId": ev.MessageID}
	}
	if err := a.store.AppendMessage(msg); err != nil {
		util.LoggerFromContext(ctx).Warn("audit inbound failed", slog.String("error", err.Error()))
	}
}

// sendText delivers text and records it in the audit trail whether or not
// delivery succeeded.
func (a *App) sendText(ctx context.Context, user domain.User, body string) {
	err := a.channel.SendText(ctx, user.ChannelAddress, body)
	a.logOutbound(ctx, user.ID, domain.MessageText, body, "", err)
}

func (a *App) sendButtons(ctx context.Context, user domain.User, body string, buttons []domain.Button) {
	err := a.channel.SendButtons(ctx, user.ChannelAddress, body, buttons)
	a.logOutbound(ctx, user.ID, domain.MessageInteractive, body, "", err)
}

func (a *App) sendList(ctx context.Context, user domain.User, body, buttonTitle string, sections []domain.ListSection) {
	err := a.channel.SendList(ctx, user.ChannelAddress, body, buttonTitle, sections)
	a.logOutbound(ctx, user.ID, domain.MessageInteractive, body, "", err)
}

func (a *App) sendImage(ctx context.Context, user domain.User, imageURL, caption string) {
	err := a.channel.SendImage(ctx, user.ChannelAddress, imageURL, caption)
	a.logOutbound(ctx, user.ID, domain.MessageImage, caption, imageURL, err)
}

func (a *App) logOutbound(ctx context.Context, userID string, kind domain.MessageKind, content, mediaURL string, sendErr error) {
	logger := util.LoggerFromContext(ctx)
	if sendErr != nil {
		logger.Error("outbound send failed", slog.String("error", sendErr.Error()))
	}
	msg := domain.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Direction: domain.DirectionOutbound,
		Kind:      kind,
		Content:   content,
		MediaURL:  mediaURL,
		CreatedAt: time.Now().UTC(),
	}
	if sendErr != nil {
		msg.Meta = map[string]string{"sendError": sendErr.Error()}
	}
	if err := a.store.AppendMessage(msg); err != nil {
		logger.Warn("audit outbound failed", slog.String("error", err.Error()))
	}
}
