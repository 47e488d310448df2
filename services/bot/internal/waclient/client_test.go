package waclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"diamondbot/pkg/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "test-token", "15550001111")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func okSendResponse(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]any{
		"messages": []map[string]string{{"id": "wamid.test"}},
	})
}

func TestSendText(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/15550001111/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		okSendResponse(w)
	}))

	if err := c.SendText(context.Background(), "972501234567", "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got["type"] != "text" || got["to"] != "972501234567" {
		t.Fatalf("payload = %v", got)
	}
	text := got["text"].(map[string]any)
	if text["body"] != "hello" {
		t.Fatalf("body = %v", text["body"])
	}
}

func TestSendButtonsCapsAtThree(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		okSendResponse(w)
	}))
	buttons := []domain.Button{
		{ID: "a", Title: "A"}, {ID: "b", Title: "B"},
		{ID: "c", Title: "C"}, {ID: "d", Title: "D"},
	}
	err := c.SendButtons(context.Background(), "972501234567", "pick one", buttons)
	if !errors.Is(err, ErrTooManyButtons) {
		t.Fatalf("err = %v, want ErrTooManyButtons", err)
	}
}

func TestSendButtonsPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		okSendResponse(w)
	}))

	err := c.SendButtons(context.Background(), "972501234567", "pick one", []domain.Button{
		{ID: "upload_gia", Title: "Upload GIA"},
	})
	if err != nil {
		t.Fatalf("SendButtons: %v", err)
	}
	inter := got["interactive"].(map[string]any)
	if inter["type"] != "button" {
		t.Fatalf("interactive type = %v", inter["type"])
	}
	action := inter["action"].(map[string]any)
	buttons := action["buttons"].([]any)
	if len(buttons) != 1 {
		t.Fatalf("buttons = %v", buttons)
	}
	reply := buttons[0].(map[string]any)["reply"].(map[string]any)
	if reply["id"] != "upload_gia" || reply["title"] != "Upload GIA" {
		t.Fatalf("reply = %v", reply)
	}
}

func TestSendListPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		okSendResponse(w)
	}))

	err := c.SendList(context.Background(), "972501234567", "what next?", "Menu", []domain.ListSection{
		{Title: "Services", Rows: []domain.ListRow{
			{ID: "search_diamonds", Title: "Search", Description: "Browse listings"},
		}},
	})
	if err != nil {
		t.Fatalf("SendList: %v", err)
	}
	inter := got["interactive"].(map[string]any)
	if inter["type"] != "list" {
		t.Fatalf("interactive type = %v", inter["type"])
	}
	action := inter["action"].(map[string]any)
	if action["button"] != "Menu" {
		t.Fatalf("button = %v", action["button"])
	}
}

func TestSendSurfacesAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid recipient", "code": 131026},
		})
	}))
	err := c.SendText(context.Background(), "bad", "hello")
	if err == nil || !strings.Contains(err.Error(), "invalid recipient") {
		t.Fatalf("err = %v", err)
	}
}

func TestDownloadMedia(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/media-123", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"url":       srv.URL + "/binary/media-123",
			"mime_type": "application/pdf",
		})
	})
	mux.HandleFunc("/binary/media-123", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("binary fetch authorization = %q", auth)
		}
		w.Write([]byte("%PDF-1.4 fake"))
	})

	c, err := New(srv.URL, "test-token", "15550001111")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, mime, err := c.DownloadMedia(context.Background(), "media-123")
	if err != nil {
		t.Fatalf("DownloadMedia: %v", err)
	}
	if mime != "application/pdf" {
		t.Fatalf("mime = %q", mime)
	}
	if string(data) != "%PDF-1.4 fake" {
		t.Fatalf("data = %q", data)
	}
}

func TestDownloadMediaMissingID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	if _, _, err := c.DownloadMedia(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty media id")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New("", "t", "p"); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := New("https://graph.example", "", "p"); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := New("https://graph.example", "t", ""); err == nil {
		t.Fatal("expected error for empty phone id")
	}
}
