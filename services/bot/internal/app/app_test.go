package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"diamondbot/pkg/ai"
	"diamondbot/pkg/domain"
	"diamondbot/pkg/store"
)

// sentMessage records one outbound action for assertions.
type sentMessage struct {
	kind     string
	to       string
	body     string
	imageURL string
	buttons  []domain.Button
	sections []domain.ListSection
}

type fakeChannel struct {
	sent []sentMessage
}

func (c *fakeChannel) SendText(_ context.Context, to, body string) error {
	c.sent = append(c.sent, sentMessage{kind: "text", to: to, body: body})
	return nil
}

func (c *fakeChannel) SendButtons(_ context.Context, to, body string, buttons []domain.Button) error {
	c.sent = append(c.sent, sentMessage{kind: "buttons", to: to, body: body, buttons: buttons})
	return nil
}

func (c *fakeChannel) SendList(_ context.Context, to, body, buttonTitle string, sections []domain.ListSection) error {
	c.sent = append(c.sent, sentMessage{kind: "list", to: to, body: body, sections: sections})
	return nil
}

func (c *fakeChannel) SendImage(_ context.Context, to, imageURL, caption string) error {
	c.sent = append(c.sent, sentMessage{kind: "image", to: to, body: caption, imageURL: imageURL})
	return nil
}

func (c *fakeChannel) texts() []string {
	var out []string
	for _, m := range c.sent {
		if m.kind == "text" {
			out = append(out, m.body)
		}
	}
	return out
}

func (c *fakeChannel) lastText(t *testing.T) string {
	t.Helper()
	texts := c.texts()
	if len(texts) == 0 {
		t.Fatal("no text messages sent")
	}
	return texts[len(texts)-1]
}

// keywordClassifier routes through the deterministic fallback rules.
type keywordClassifier struct{}

func (keywordClassifier) Classify(_ context.Context, text string, sctx ai.SessionContext) ai.Classification {
	return ai.ClassifyByKeywords(text, sctx)
}

// fixedClassifier always answers the same verdict.
type fixedClassifier struct {
	cls ai.Classification
}

func (f fixedClassifier) Classify(context.Context, string, ai.SessionContext) ai.Classification {
	return f.cls
}

type fakeGenerator struct {
	fail bool
}

func (g *fakeGenerator) result(prompt string) ai.DesignResult {
	if g.fail {
		return ai.DesignResult{Prompt: prompt, Error: "generator down"}
	}
	return ai.DesignResult{Success: true, Prompt: prompt, ImageURL: "https://img.test/" + fmt.Sprint(len(prompt)) + ".png"}
}

func (g *fakeGenerator) DesignFromDiamond(_ context.Context, d domain.Diamond) ai.DesignResult {
	return g.result("auto:" + d.ID)
}

func (g *fakeGenerator) DesignFromText(_ context.Context, input string) ai.DesignResult {
	return g.result("free:" + input)
}

func (g *fakeGenerator) DesignWithDiamond(_ context.Context, d domain.Diamond, input string) ai.DesignResult {
	return g.result("gia:" + d.ID + ":" + input)
}

func (g *fakeGenerator) EditDesign(_ context.Context, previousPrompt, change string) ai.DesignResult {
	return g.result(previousPrompt + "|edit:" + change)
}

func (g *fakeGenerator) DesignVariation(_ context.Context, previousPrompt string) ai.DesignResult {
	return g.result(previousPrompt + "|variation")
}

func (g *fakeGenerator) Design360View(_ context.Context, previousPrompt string) ai.DesignResult {
	return g.result(previousPrompt + "|360")
}

type fakeExtractor struct {
	cert ai.CertificateData
	err  error
}

func (e *fakeExtractor) ExtractFromPDF(context.Context, []byte, string) (ai.CertificateData, error) {
	return e.cert, e.err
}

func (e *fakeExtractor) ExtractFromImage(context.Context, string) (ai.CertificateData, error) {
	return e.cert, e.err
}

type fakeFetcher struct {
	data []byte
	mime string
}

func (f *fakeFetcher) DownloadMedia(context.Context, string) ([]byte, string, error) {
	return f.data, f.mime, nil
}

type fakeTranscriber struct {
	tr  ai.Transcription
	err error
}

func (f *fakeTranscriber) Transcribe(context.Context, string, []byte) (ai.Transcription, error) {
	return f.tr, f.err
}

type fakeObjectStore struct{}

func (fakeObjectStore) Put(_ context.Context, key string, _ io.Reader, _ int64, _ string) (string, error) {
	return "https://media.test/" + key, nil
}

func (fakeObjectStore) PutBytes(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://media.test/" + key, nil
}

func (fakeObjectStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://media.test/presigned/" + key, nil
}

func (fakeObjectStore) Delete(context.Context, string) error { return nil }

type testEnv struct {
	app       *App
	store     *store.MemoryStore
	channel   *fakeChannel
	generator *fakeGenerator
	extractor *fakeExtractor
	fetcher   *fakeFetcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     store.NewMemoryStore(),
		channel:   &fakeChannel{},
		generator: &fakeGenerator{},
		extractor: &fakeExtractor{},
		fetcher:   &fakeFetcher{data: []byte("media-bytes"), mime: "application/pdf"},
	}
	env.app = New(Config{
		Store:       env.store,
		Media:       fakeObjectStore{},
		Channel:     env.channel,
		Fetcher:     env.fetcher,
		Classifier:  keywordClassifier{},
		Generator:   env.generator,
		Extractor:   env.extractor,
		Transcriber: &fakeTranscriber{tr: ai.Transcription{Text: "show me round diamonds", Confidence: 0.9}},
	})
	return env
}

// useClassifier rebuilds the app with a fixed classification verdict.
func (env *testEnv) useClassifier(cls ai.Classification) {
	env.app = New(Config{
		Store:       env.store,
		Media:       fakeObjectStore{},
		Channel:     env.channel,
		Fetcher:     env.fetcher,
		Classifier:  fixedClassifier{cls: cls},
		Generator:   env.generator,
		Extractor:   env.extractor,
		Transcriber: &fakeTranscriber{tr: ai.Transcription{Text: "show me round diamonds", Confidence: 0.9}},
	})
}

const testAddress = "972501234567"

func (env *testEnv) user(t *testing.T) domain.User {
	t.Helper()
	user, ok, err := env.store.GetUserByAddress(testAddress)
	if err != nil || !ok {
		t.Fatalf("user lookup: ok=%v err=%v", ok, err)
	}
	return user
}

func (env *testEnv) session(t *testing.T) domain.Session {
	t.Helper()
	sess, err := NewSessionStore(env.store).Load(env.user(t).ID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return sess
}

func (env *testEnv) text(t *testing.T, text string) {
	t.Helper()
	err := env.app.HandleEvent(context.Background(), Event{
		From: testAddress, Kind: domain.MessageText, Text: text,
	})
	if err != nil {
		t.Fatalf("HandleEvent(%q): %v", text, err)
	}
}

func (env *testEnv) press(t *testing.T, replyID string) {
	t.Helper()
	err := env.app.HandleEvent(context.Background(), Event{
		From: testAddress, Kind: domain.MessageInteractive, ReplyID: replyID,
	})
	if err != nil {
		t.Fatalf("HandleEvent(press %q): %v", replyID, err)
	}
}

func (env *testEnv) media(t *testing.T, kind domain.MessageKind) {
	t.Helper()
	err := env.app.HandleEvent(context.Background(), Event{
		From: testAddress, Kind: kind, MediaID: "media-1", Filename: "file.bin",
	})
	if err != nil {
		t.Fatalf("HandleEvent(media %s): %v", kind, err)
	}
}

// seedDiamond installs a user with a parsed diamond and gia_menu session.
func (env *testEnv) seedDiamond(t *testing.T) domain.Diamond {
	t.Helper()
	env.text(t, "hi")
	user := env.user(t)
	diamond := domain.Diamond{
		ID: "diamond-1", UserID: user.ID, Shape: "round", Carat: 1.5,
		ColorType: "white", PrimaryHue: "F", Clarity: "VS1",
		CertificateNumber: "2141438171", CreatedAt: time.Now().UTC(),
	}
	if err := env.store.CreateDiamond(diamond); err != nil {
		t.Fatalf("seed diamond: %v", err)
	}
	_, err := NewSessionStore(env.store).Save(user.ID, domain.SessionUpdate{
		Step:          stepPtr(domain.StepGIAMenu),
		LastDiamondID: strPtr(diamond.ID),
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	env.channel.sent = nil
	return diamond
}

func TestGreetingSendsMenu(t *testing.T) {
	env := newTestEnv(t)
	env.text(t, "hello")

	if env.channel.lastTextContains("Welcome") == false {
		t.Fatalf("expected greeting, got %v", env.channel.texts())
	}
	last := env.channel.sent[len(env.channel.sent)-1]
	if last.kind != "list" {
		t.Fatalf("expected main menu list, got %q", last.kind)
	}
}

func (c *fakeChannel) lastTextContains(want string) bool {
	for _, m := range c.sent {
		if m.kind == "text" && strings.Contains(m.body, want) {
			return true
		}
	}
	return false
}

func TestUnknownUserIsCreated(t *testing.T) {
	env := newTestEnv(t)
	env.text(t, "hi")

	user := env.user(t)
	if user.ChannelAddress != testAddress {
		t.Fatalf("channelAddress = %q", user.ChannelAddress)
	}
	msgs, err := env.store.ListMessagesByUser(user.ID, store.ListOptions{})
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	var inbound, outbound int
	for _, m := range msgs {
		switch m.Direction {
		case domain.DirectionInbound:
			inbound++
		case domain.DirectionOutbound:
			outbound++
		}
	}
	if inbound != 1 {
		t.Fatalf("inbound audit records = %d, want 1", inbound)
	}
	if outbound == 0 {
		t.Fatal("outbound sends were not audit logged")
	}
}

func TestVoiceHighConfidenceRedispatches(t *testing.T) {
	env := newTestEnv(t)
	err := env.app.HandleEvent(context.Background(), Event{
		From: testAddress, Kind: domain.MessageAudio, MediaID: "voice-1",
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if !env.channel.lastTextContains("I heard") {
		t.Fatalf("expected transcript echo, got %v", env.channel.texts())
	}
	// "show me round diamonds" routes to search, which finds nothing
	if !env.channel.lastTextContains("No diamonds matched") {
		t.Fatalf("expected search to run on transcript, got %v", env.channel.texts())
	}
}

func TestVoiceLowConfidenceAsksToType(t *testing.T) {
	env := newTestEnv(t)
	env.app.transcriber = &fakeTranscriber{tr: ai.Transcription{Text: "mumble", Confidence: 0.4}}

	err := env.app.HandleEvent(context.Background(), Event{
		From: testAddress, Kind: domain.MessageAudio, MediaID: "voice-1",
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if !env.channel.lastTextContains("type your request") {
		t.Fatalf("expected typing fallback, got %v", env.channel.texts())
	}
}
