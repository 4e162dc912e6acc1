package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/freelance-crm-api/internal/models"
)

var ErrAINoDraft = errors.New("AI did not return a draft")

type AIService struct {
	client *openai.Client
}

// FollowUpDraft is the subject and body the model proposes for the next message
type FollowUpDraft struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

// NewAIServiceWithConfig creates an AIService against a custom endpoint
func NewAIServiceWithConfig(cfg openai.ClientConfig) *AIService {
	return &AIService{
		client: openai.NewClientWithConfig(cfg),
	}
}

// DraftFollowUp drafts the next communication to a client from its recent history (newest first)
func (s *AIService) DraftFollowUp(ctx context.Context, client models.Client, history []models.Communication) (*FollowUpDraft, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: buildFollowUpPrompt(client, history, time.Now()),
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: 0.4,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content

	var draft FollowUpDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	draft.Subject = strings.TrimSpace(draft.Subject)
	draft.Content = strings.TrimSpace(draft.Content)
	if draft.Subject == "" || draft.Content == "" {
		return nil, ErrAINoDraft
	}

	return &draft, nil
}

func buildFollowUpPrompt(client models.Client, history []models.Communication, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are an assistant for a freelancer writing to a client.
Draft the next message to send, based on the recent communications below.

Current time: %s
Client: %s`, now.Format("2006-01-02 15:04"), client.Name)
	if client.Company != "" {
		fmt.Fprintf(&b, " (%s)", client.Company)
	}
	if client.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", client.Notes)
	}

	b.WriteString("\n\nRecent communications (newest first):\n")
	if len(history) == 0 {
		b.WriteString("- none yet\n")
	}
	for _, c := range history {
		fmt.Fprintf(&b, "- [%s] %s %q: %s\n", c.SentAt.Format("2006-01-02"), c.Type, c.Subject, c.Content)
	}

	b.WriteString(`
Return JSON only, in this shape:
{"subject": "short subject line", "content": "message body"}`)

	return b.String()
}
