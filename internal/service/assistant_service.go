package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

var (
	ErrAICreditsExhausted = errors.New("ai credits exhausted")
	ErrAIUnavailable      = errors.New("ai completion failed")
	ErrAIDraftInvalid     = errors.New("ai draft did not match the block schema")
	ErrChatQuestionEmpty  = errors.New("question is empty")
)

const (
	generateSystemPrompt = "You draft content for a short-term rental guest guidebook. " +
		"Respond with a single JSON object matching the requested block schema and nothing else."
	chatSystemPrompt = "You are the guest assistant for a short-term rental. " +
		"Answer only from the guidebook content provided. If the answer is not " +
		"in the guidebook, say you do not know and suggest contacting the host."

	maxChatQuestionLen = 500
)

type AssistantService struct {
	completer  ports.ChatCompleter
	users      ports.UserRepository
	guidebooks ports.GuidebookRepository
	blocks     ports.BlockRepository
}

type GeneratedDraft struct {
	Content          json.RawMessage `json:"content"`
	RemainingCredits int             `json:"remaining_credits"`
}

func NewAssistantService(completer ports.ChatCompleter, users ports.UserRepository, guidebooks ports.GuidebookRepository, blocks ports.BlockRepository) *AssistantService {
	return &AssistantService{completer: completer, users: users, guidebooks: guidebooks, blocks: blocks}
}

// GenerateBlockContent drafts content for an existing block from the rest of
// the guidebook. One AI credit is debited per call; the draft is validated
// against the block's schema before it is returned.
func (s *AssistantService) GenerateBlockContent(ctx context.Context, ownerID, guidebookID, blockID uuid.UUID, instructions string) (*GeneratedDraft, error) {
	guidebook, err := s.ownedGuidebook(ctx, ownerID, guidebookID)
	if err != nil {
		return nil, err
	}
	block, err := s.blocks.FindByID(ctx, blockID)
	if err != nil || block.GuidebookID != guidebookID {
		return nil, ErrBlockNotFound
	}

	remaining, err := s.users.SpendAICredits(ctx, ownerID, 1)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAICreditsExhausted
		}
		return nil, err
	}

	prompt := s.buildGeneratePrompt(ctx, guidebook, block, instructions)
	answer, err := s.completer.Complete(ctx, generateSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	raw := extractJSONObject(answer)
	if raw == nil {
		return nil, ErrAIDraftInvalid
	}
	parsed, err := domain.ParseBlockContent(block.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIDraftInvalid, err)
	}
	normalized, err := json.Marshal(parsed)
	if err != nil {
		return nil, err
	}
	return &GeneratedDraft{Content: normalized, RemainingCredits: remaining}, nil
}

// GuestChat answers a guest question grounded on the published guidebook.
// The whole guidebook fits the prompt, so there is no retrieval step. Each
// answer debits one of the host's AI credits.
func (s *AssistantService) GuestChat(ctx context.Context, slug, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrChatQuestionEmpty
	}
	if len(question) > maxChatQuestionLen {
		cut := maxChatQuestionLen
		for cut > 0 && !utf8.RuneStart(question[cut]) {
			cut--
		}
		question = question[:cut]
	}

	guidebook, err := s.guidebooks.FindBySlug(ctx, slug)
	if err != nil || !guidebook.IsPublished() {
		return "", ErrGuidebookNotFound
	}
	blocks, err := s.blocks.ListByGuidebook(ctx, guidebook.ID)
	if err != nil {
		return "", err
	}

	if _, err := s.users.SpendAICredits(ctx, guidebook.OwnerID, 1); err != nil {
		if isNotFound(err) {
			return "", ErrAICreditsExhausted
		}
		return "", err
	}

	var prompt strings.Builder
	prompt.WriteString("Guidebook: ")
	prompt.WriteString(guidebook.Title)
	prompt.WriteString("\n\n")
	prompt.WriteString(guidebookContext(blocks))
	prompt.WriteString("\nGuest question: ")
	prompt.WriteString(question)

	answer, err := s.completer.Complete(ctx, chatSystemPrompt, prompt.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	return strings.TrimSpace(answer), nil
}

func (s *AssistantService) buildGeneratePrompt(ctx context.Context, guidebook *domain.Guidebook, block *domain.Block, instructions string) string {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Block type: %s\n", block.Type)
	if len(block.Content) > 0 && string(block.Content) != "{}" {
		fmt.Fprintf(&prompt, "Current content: %s\n", block.Content)
	}
	fmt.Fprintf(&prompt, "Guidebook title: %s\n", guidebook.Title)
	if guidebook.Description != nil {
		fmt.Fprintf(&prompt, "Guidebook description: %s\n", *guidebook.Description)
	}
	if blocks, err := s.blocks.ListByGuidebook(ctx, guidebook.ID); err == nil {
		if context := guidebookContext(blocks); context != "" {
			prompt.WriteString("Other blocks:\n")
			prompt.WriteString(context)
		}
	}
	if extra := strings.TrimSpace(instructions); extra != "" {
		fmt.Fprintf(&prompt, "Host instructions: %s\n", extra)
	}
	return prompt.String()
}

// guidebookContext flattens the visible blocks into plain text for prompts.
func guidebookContext(blocks []domain.Block) string {
	var out strings.Builder
	for _, block := range blocks {
		if !block.IsVisible {
			continue
		}
		content, err := domain.ParseBlockContent(block.Type, block.Content)
		if err != nil {
			continue
		}
		switch c := content.(type) {
		case domain.HeroContent:
			fmt.Fprintf(&out, "- %s", c.Title)
			if c.Subtitle != nil {
				fmt.Fprintf(&out, ": %s", *c.Subtitle)
			}
			out.WriteString("\n")
		case domain.QuickInfoContent:
			fmt.Fprintf(&out, "- Check-in %s, check-out %s. Address: %s\n", c.CheckIn, c.CheckOut, c.Address)
			if c.WiFi != nil {
				fmt.Fprintf(&out, "- WiFi network %q, password %q\n", c.WiFi.SSID, c.WiFi.Password)
			}
			if c.DoorLock != nil {
				fmt.Fprintf(&out, "- Door lock code %s. %s\n", c.DoorLock.Password, c.DoorLock.Instructions)
			}
		case domain.AmenitiesContent:
			for _, item := range c.Items {
				if item.Available {
					fmt.Fprintf(&out, "- Amenity: %s\n", item.Name)
				}
			}
		case domain.RulesContent:
			for _, section := range c.Sections {
				fmt.Fprintf(&out, "- %s: %s\n", section.Title, strings.Join(section.Items, "; "))
			}
			if len(c.CheckoutChecklist) > 0 {
				fmt.Fprintf(&out, "- Before checkout: %s\n", strings.Join(c.CheckoutChecklist, "; "))
			}
		case domain.NoticeContent:
			fmt.Fprintf(&out, "- Notice (%s): %s. %s\n", c.Type, c.Title, c.Content)
		case domain.CustomContent:
			if c.Title != nil {
				fmt.Fprintf(&out, "- %s: %s\n", *c.Title, c.Body)
			} else if c.Body != "" {
				fmt.Fprintf(&out, "- %s\n", c.Body)
			}
		}
	}
	return out.String()
}

// extractJSONObject pulls the first JSON object out of a completion, which
// may wrap it in markdown fences or prose.
func extractJSONObject(answer string) json.RawMessage {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end <= start {
		return nil
	}
	candidate := answer[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil
	}
	return json.RawMessage(candidate)
}

func (s *AssistantService) ownedGuidebook(ctx context.Context, ownerID, guidebookID uuid.UUID) (*domain.Guidebook, error) {
	guidebook, err := s.guidebooks.FindByID(ctx, guidebookID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrGuidebookNotFound
		}
		return nil, err
	}
	if guidebook.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return guidebook, nil
}
