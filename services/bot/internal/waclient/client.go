package waclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"diamondbot/pkg/domain"
)

// ErrTooManyButtons is returned when a reply exceeds the provider cap of
// three buttons per interactive message.
var ErrTooManyButtons = errors.New("interactive messages allow at most 3 buttons")

const maxMediaBytes = 32 << 20

// Client sends and fetches messages through the WhatsApp Cloud API.
type Client struct {
	baseURL    string
	token      string
	phoneID    string
	httpClient *http.Client
}

func New(baseURL, token, phoneID string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("whatsapp api base url required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("whatsapp token required")
	}
	if strings.TrimSpace(phoneID) == "" {
		return nil, errors.New("whatsapp phone id required")
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		phoneID:    phoneID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type textPayload struct {
	Body string `json:"body"`
}

type outboundMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textPayload `json:"text,omitempty"`
	Image            *imageLink   `json:"image,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
}

type imageLink struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type interactive struct {
	Type   string           `json:"type"`
	Body   interactiveBody  `json:"body"`
	Action any              `json:"action"`
	Header *interactiveHead `json:"header,omitempty"`
}

type interactiveBody struct {
	Text string `json:"text"`
}

type interactiveHead struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type buttonAction struct {
	Buttons []replyButton `json:"buttons"`
}

type replyButton struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type listAction struct {
	Button   string        `json:"button"`
	Sections []listSection `json:"sections"`
}

type listSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []listRow `json:"rows"`
}

type listRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *graphError `json:"error,omitempty"`
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	return c.send(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	})
}

// SendButtons delivers up to three reply buttons under a body text.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []domain.Button) error {
	if len(buttons) == 0 {
		return errors.New("at least one button required")
	}
	if len(buttons) > 3 {
		return ErrTooManyButtons
	}
	action := buttonAction{Buttons: make([]replyButton, 0, len(buttons))}
	for _, b := range buttons {
		action.Buttons = append(action.Buttons, replyButton{
			Type:  "reply",
			Reply: buttonReply{ID: b.ID, Title: b.Title},
		})
	}
	return c.send(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      &interactive{Type: "button", Body: interactiveBody{Text: body}, Action: action},
	})
}

// SendList delivers an interactive list with sections of selectable rows.
func (c *Client) SendList(ctx context.Context, to, body, buttonTitle string, sections []domain.ListSection) error {
	if len(sections) == 0 {
		return errors.New("at least one list section required")
	}
	action := listAction{Button: buttonTitle, Sections: make([]listSection, 0, len(sections))}
	for _, s := range sections {
		sec := listSection{Title: s.Title, Rows: make([]listRow, 0, len(s.Rows))}
		for _, r := range s.Rows {
			sec.Rows = append(sec.Rows, listRow{ID: r.ID, Title: r.Title, Description: r.Description})
		}
		action.Sections = append(action.Sections, sec)
	}
	return c.send(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      &interactive{Type: "list", Body: interactiveBody{Text: body}, Action: action},
	})
}

// SendImage delivers an image by public URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, to, imageURL, caption string) error {
	return c.send(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "image",
		Image:            &imageLink{Link: imageURL, Caption: caption},
	})
}

func (c *Client) send(ctx context.Context, msg outboundMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	var decoded sendResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("decode send response: %w", err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("whatsapp api: %s (code %d)", decoded.Error.Message, decoded.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whatsapp api: status %d", resp.StatusCode)
	}
	return nil
}

type mediaInfo struct {
	URL      string      `json:"url"`
	MimeType string      `json:"mime_type"`
	Error    *graphError `json:"error,omitempty"`
}

// DownloadMedia resolves a media id to its temporary URL and fetches the
// bytes. Both calls carry the bearer token.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	if strings.TrimSpace(mediaID) == "" {
		return nil, "", errors.New("media id required")
	}
	info, err := c.mediaInfo(ctx, mediaID)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download media %s: %w", mediaID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download media %s: status %d", mediaID, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxMediaBytes {
		return nil, "", fmt.Errorf("media %s exceeds %d bytes", mediaID, maxMediaBytes)
	}
	return data, info.MimeType, nil
}

func (c *Client) mediaInfo(ctx context.Context, mediaID string) (mediaInfo, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return mediaInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mediaInfo{}, fmt.Errorf("resolve media %s: %w", mediaID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return mediaInfo{}, err
	}
	var info mediaInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return mediaInfo{}, fmt.Errorf("decode media info: %w", err)
	}
	if info.Error != nil {
		return mediaInfo{}, fmt.Errorf("resolve media %s: %s", mediaID, info.Error.Message)
	}
	if info.URL == "" {
		return mediaInfo{}, fmt.Errorf("resolve media %s: empty url", mediaID)
	}
	return info, nil
}
