package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/roomyhq/roomy-server/internal/domain"
)

type fakeCompleter struct {
	answer    string
	err       error
	gotSystem string
	gotUser   string
	calls     int
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.gotSystem = system
	f.gotUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type assistantFixture struct {
	svc        *AssistantService
	completer  *fakeCompleter
	users      *fakeUserRepo
	guidebooks *fakeGuidebookRepo
	blocks     *fakeBlockRepo
	owner      *domain.User
	guidebook  *domain.Guidebook
}

func newAssistantFixture(t *testing.T) *assistantFixture {
	t.Helper()
	completer := &fakeCompleter{}
	users := newFakeUserRepo()
	guidebooks := newFakeGuidebookRepo()
	blocks := newFakeBlockRepo()
	owner := seedUser(t, users, domain.PlanPro)
	guidebook := seedGuidebook(t, guidebooks, owner.ID)
	return &assistantFixture{
		svc:        NewAssistantService(completer, users, guidebooks, blocks),
		completer:  completer,
		users:      users,
		guidebooks: guidebooks,
		blocks:     blocks,
		owner:      owner,
		guidebook:  guidebook,
	}
}

func TestAssistantGenerateBlockContent(t *testing.T) {
	ctx := context.Background()
	fx := newAssistantFixture(t)

	block, err := fx.blocks.Insert(ctx, fx.guidebook.ID, domain.BlockTypeNotice,
		json.RawMessage(`{"title":"x","content":"y","type":"info"}`), 0)
	if err != nil {
		t.Fatalf("insert block: %v", err)
	}

	t.Run("valid draft is normalized and credits debited", func(t *testing.T) {
		fx.completer.answer = "```json\n{\"title\":\"Pool maintenance\",\"content\":\"Closed Tuesday morning\",\"type\":\"warning\"}\n```"
		before, _ := fx.users.FindByID(ctx, fx.owner.ID)

		draft, err := fx.svc.GenerateBlockContent(ctx, fx.owner.ID, fx.guidebook.ID, block.ID, "mention the pool")
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if draft.RemainingCredits != before.AICredits-1 {
			t.Fatalf("expected one credit spent, remaining %d", draft.RemainingCredits)
		}
		var notice domain.NoticeContent
		if err := json.Unmarshal(draft.Content, &notice); err != nil {
			t.Fatalf("unmarshal draft: %v", err)
		}
		if notice.Type != "warning" {
			t.Fatalf("unexpected draft %+v", notice)
		}
		if !strings.Contains(fx.completer.gotUser, "mention the pool") {
			t.Fatal("expected host instructions in the prompt")
		}
	})

	t.Run("schema-violating draft is rejected", func(t *testing.T) {
		fx.completer.answer = `{"title":"","content":"x","type":"shout"}`
		_, err := fx.svc.GenerateBlockContent(ctx, fx.owner.ID, fx.guidebook.ID, block.ID, "")
		if !errors.Is(err, ErrAIDraftInvalid) {
			t.Fatalf("expected ErrAIDraftInvalid, got %v", err)
		}
	})

	t.Run("non-json answer is rejected", func(t *testing.T) {
		fx.completer.answer = "Sure! Here are some ideas."
		_, err := fx.svc.GenerateBlockContent(ctx, fx.owner.ID, fx.guidebook.ID, block.ID, "")
		if !errors.Is(err, ErrAIDraftInvalid) {
			t.Fatalf("expected ErrAIDraftInvalid, got %v", err)
		}
	})

	t.Run("exhausted credits refuse before calling the model", func(t *testing.T) {
		broke := seedUser(t, fx.users, domain.PlanFree)
		fx.users.users[broke.ID].AICredits = 0
		guidebook := seedGuidebook(t, fx.guidebooks, broke.ID)
		blk, _ := fx.blocks.Insert(ctx, guidebook.ID, domain.BlockTypeCustom, json.RawMessage(`{"body":"x"}`), 0)

		calls := fx.completer.calls
		_, err := fx.svc.GenerateBlockContent(ctx, broke.ID, guidebook.ID, blk.ID, "")
		if !errors.Is(err, ErrAICreditsExhausted) {
			t.Fatalf("expected ErrAICreditsExhausted, got %v", err)
		}
		if fx.completer.calls != calls {
			t.Fatal("model must not be called without credits")
		}
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		stranger := seedUser(t, fx.users, domain.PlanPro)
		_, err := fx.svc.GenerateBlockContent(ctx, stranger.ID, fx.guidebook.ID, block.ID, "")
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestAssistantGuestChat(t *testing.T) {
	ctx := context.Background()
	fx := newAssistantFixture(t)

	published := domain.GuidebookStatusPublished
	if _, err := fx.guidebooks.Update(ctx, fx.guidebook.ID, domain.GuidebookSettings{Status: &published}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := fx.blocks.Insert(ctx, fx.guidebook.ID, domain.BlockTypeQuickInfo,
		json.RawMessage(`{"checkIn":"15:00","checkOut":"11:00","address":"123 Beach Rd","wifi":{"ssid":"loft","password":"waves123"}}`), 0); err != nil {
		t.Fatalf("insert quickInfo: %v", err)
	}
	hiddenContent := json.RawMessage(`{"title":"Private","content":"Owner closet code 9999","type":"info"}`)
	hidden, err := fx.blocks.Insert(ctx, fx.guidebook.ID, domain.BlockTypeNotice, hiddenContent, 1)
	if err != nil {
		t.Fatalf("insert notice: %v", err)
	}
	invisible := false
	if _, err := fx.blocks.UpdateContent(ctx, hidden.ID, hiddenContent, &invisible); err != nil {
		t.Fatalf("hide notice: %v", err)
	}

	t.Run("answers from visible block context", func(t *testing.T) {
		fx.completer.answer = "The WiFi password is waves123."
		answer, err := fx.svc.GuestChat(ctx, fx.guidebook.Slug, "what is the wifi password?")
		if err != nil {
			t.Fatalf("chat: %v", err)
		}
		if answer != "The WiFi password is waves123." {
			t.Fatalf("unexpected answer %q", answer)
		}
		if !strings.Contains(fx.completer.gotUser, "waves123") {
			t.Fatal("expected wifi details in the prompt context")
		}
		if strings.Contains(fx.completer.gotUser, "9999") {
			t.Fatal("hidden blocks must not leak into the prompt")
		}
	})

	t.Run("long question is clipped on a rune boundary", func(t *testing.T) {
		fx.completer.answer = "Check-in is at 15:00."
		question := strings.Repeat("체크인 시간이 언제인가요? ", 30)
		if len(question) <= maxChatQuestionLen {
			t.Fatalf("fixture question too short: %d bytes", len(question))
		}
		if _, err := fx.svc.GuestChat(ctx, fx.guidebook.Slug, question); err != nil {
			t.Fatalf("chat: %v", err)
		}
		if !utf8.ValidString(fx.completer.gotUser) {
			t.Fatal("clipped question produced invalid utf-8 in the prompt")
		}
	})

	t.Run("empty question", func(t *testing.T) {
		if _, err := fx.svc.GuestChat(ctx, fx.guidebook.Slug, "   "); !errors.Is(err, ErrChatQuestionEmpty) {
			t.Fatalf("expected ErrChatQuestionEmpty, got %v", err)
		}
	})

	t.Run("unknown slug", func(t *testing.T) {
		if _, err := fx.svc.GuestChat(ctx, "nope", "hi"); !errors.Is(err, ErrGuidebookNotFound) {
			t.Fatalf("expected ErrGuidebookNotFound, got %v", err)
		}
	})

	t.Run("draft guidebook is invisible to guests", func(t *testing.T) {
		draft := seedGuidebook(t, fx.guidebooks, fx.owner.ID)
		if _, err := fx.svc.GuestChat(ctx, draft.Slug, "hi"); !errors.Is(err, ErrGuidebookNotFound) {
			t.Fatalf("expected ErrGuidebookNotFound for draft, got %v", err)
		}
	})
}
