package ai

import "context"

const assistantSystemPrompt = `You are a friendly diamond and jewelry expert answering WhatsApp messages.
Keep answers short (under 120 words), practical and honest. If a question is
outside diamonds, gemstones or jewelry, say so briefly and steer back.`

// ConversationAssistant answers general questions through the chat model.
type ConversationAssistant struct {
	client *Client
}

func NewConversationAssistant(client *Client) *ConversationAssistant {
	return &ConversationAssistant{client: client}
}

func (a *ConversationAssistant) Reply(ctx context.Context, question string) (string, error) {
	return a.client.ChatCompletion(ctx, []ChatMessage{
		TextMessage("system", assistantSystemPrompt),
		TextMessage("user", question),
	}, 0.7, 400)
}
