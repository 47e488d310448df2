package server

import (
	"diamondbot/pkg/domain"
	"diamondbot/services/bot/internal/app"
)

// webhookPayload mirrors the WhatsApp Cloud API notification envelope,
// trimmed to the fields the bot consumes.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WAID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
	Image struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	} `json:"image"`
	Document struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		MimeType string `json:"mime_type"`
	} `json:"document"`
	Audio struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	} `json:"audio"`
	Interactive struct {
		Type        string `json:"type"`
		ButtonReply struct {
			ID string `json:"id"`
		} `json:"button_reply"`
		ListReply struct {
			ID string `json:"id"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// events flattens the envelope into dispatchable events. Unknown message
// types are skipped.
func (p webhookPayload) events() []app.Event {
	var out []app.Event
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			names := map[string]string{}
			for _, c := range change.Value.Contacts {
				names[c.WAID] = c.Profile.Name
			}
			for _, m := range change.Value.Messages {
				ev, ok := m.toEvent()
				if !ok {
					continue
				}
				ev.Name = names[ev.From]
				out = append(out, ev)
			}
		}
	}
	return out
}

func (m inboundMessage) toEvent() (app.Event, bool) {
	ev := app.Event{MessageID: m.ID, From: m.From}
	switch m.Type {
	case "text":
		ev.Kind = domain.MessageText
		ev.Text = m.Text.Body
	case "image":
		ev.Kind = domain.MessageImage
		ev.MediaID = m.Image.ID
		ev.MimeType = m.Image.MimeType
	case "document":
		ev.Kind = domain.MessageDocument
		ev.MediaID = m.Document.ID
		ev.Filename = m.Document.Filename
		ev.MimeType = m.Document.MimeType
	case "audio":
		ev.Kind = domain.MessageAudio
		ev.MediaID = m.Audio.ID
		ev.MimeType = m.Audio.MimeType
	case "interactive":
		ev.Kind = domain.MessageInteractive
		if m.Interactive.Type == "list_reply" {
			ev.ReplyID = m.Interactive.ListReply.ID
		} else {
			ev.ReplyID = m.Interactive.ButtonReply.ID
		}
	default:
		return app.Event{}, false
	}
	return ev, true
}
