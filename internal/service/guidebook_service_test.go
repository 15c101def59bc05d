package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
)

type fakeUserRepo struct {
	users   map[uuid.UUID]*domain.User
	byEmail map[string]uuid.UUID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*domain.User{}, byEmail: map[string]uuid.UUID{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, taken := r.byEmail[user.Email]; taken {
		return nil, errUnique
	}
	clone := *user
	if clone.ID == uuid.Nil {
		clone.ID = uuid.New()
	}
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = clone.CreatedAt
	r.users[clone.ID] = &clone
	r.byEmail[clone.Email] = clone.ID
	out := clone
	return &out, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *user
	return &out, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	id, ok := r.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r.FindByID(context.Background(), id)
}

func (r *fakeUserRepo) UpsertByEmail(_ context.Context, email, displayName string) (*domain.User, error) {
	if id, ok := r.byEmail[email]; ok {
		out := *r.users[id]
		return &out, nil
	}
	user := &domain.User{Email: email, Plan: domain.PlanFree, AICredits: domain.LimitsFor(domain.PlanFree).MonthlyAICredits}
	if displayName != "" {
		user.DisplayName = &displayName
	}
	return r.Create(context.Background(), user)
}

func (r *fakeUserRepo) SetPlan(_ context.Context, id uuid.UUID, plan domain.PlanTier, aiCredits int) error {
	user, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Plan = plan
	user.AICredits = aiCredits
	return nil
}

func (r *fakeUserRepo) SpendAICredits(_ context.Context, id uuid.UUID, amount int) (int, error) {
	user, ok := r.users[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	if user.AICredits < amount {
		return 0, sql.ErrNoRows
	}
	user.AICredits -= amount
	return user.AICredits, nil
}

func seedUser(t *testing.T, repo *fakeUserRepo, plan domain.PlanTier) *domain.User {
	t.Helper()
	user, err := repo.Create(context.Background(), &domain.User{
		Email:     uuid.NewString()[:8] + "@host.test",
		Plan:      plan,
		AICredits: domain.LimitsFor(plan).MonthlyAICredits,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func newGuidebookService() (*GuidebookService, *fakeGuidebookRepo, *fakeBlockRepo, *fakeUserRepo) {
	guidebooks := newFakeGuidebookRepo()
	blocks := newFakeBlockRepo()
	users := newFakeUserRepo()
	return NewGuidebookService(guidebooks, blocks, users), guidebooks, blocks, users
}

func TestGuidebookServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc, _, _, users := newGuidebookService()

	t.Run("creates a draft with normalized slug", func(t *testing.T) {
		owner := seedUser(t, users, domain.PlanPro)
		created, err := svc.Create(ctx, owner.ID, GuidebookCreateInput{
			Title: "  Seaside Loft  ",
			Slug:  "Seaside-Loft",
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.Slug != "seaside-loft" {
			t.Fatalf("expected lowercased slug, got %q", created.Slug)
		}
		if created.Status != domain.GuidebookStatusDraft {
			t.Fatalf("expected draft status, got %q", created.Status)
		}
		if created.Theme != "default" {
			t.Fatalf("expected default theme, got %q", created.Theme)
		}
	})

	t.Run("rejects bad slugs", func(t *testing.T) {
		owner := seedUser(t, users, domain.PlanPro)
		for _, slug := range []string{"", "has space", "UPPER!", "-leading", "trailing-", "a--b"} {
			_, err := svc.Create(ctx, owner.ID, GuidebookCreateInput{Title: "T", Slug: slug})
			if !errors.Is(err, ErrGuidebookValidation) {
				t.Fatalf("slug %q: expected ErrGuidebookValidation, got %v", slug, err)
			}
		}
	})

	t.Run("duplicate slug conflicts", func(t *testing.T) {
		owner := seedUser(t, users, domain.PlanPro)
		if _, err := svc.Create(ctx, owner.ID, GuidebookCreateInput{Title: "A", Slug: "taken-slug"}); err != nil {
			t.Fatalf("create first: %v", err)
		}
		_, err := svc.Create(ctx, owner.ID, GuidebookCreateInput{Title: "B", Slug: "taken-slug"})
		if !errors.Is(err, ErrSlugTaken) {
			t.Fatalf("expected ErrSlugTaken, got %v", err)
		}
	})

	t.Run("free plan is capped at one guidebook", func(t *testing.T) {
		owner := seedUser(t, users, domain.PlanFree)
		if _, err := svc.Create(ctx, owner.ID, GuidebookCreateInput{Title: "One", Slug: "free-one"}); err != nil {
			t.Fatalf("create first: %v", err)
		}
		_, err := svc.Create(ctx, owner.ID, GuidebookCreateInput{Title: "Two", Slug: "free-two"})
		if !errors.Is(err, ErrPlanLimitReached) {
			t.Fatalf("expected ErrPlanLimitReached, got %v", err)
		}
	})

	t.Run("business plan is unlimited", func(t *testing.T) {
		owner := seedUser(t, users, domain.PlanBusiness)
		for i := 0; i < 8; i++ {
			slug := "biz-" + strings.Repeat("a", i+1)
			if _, err := svc.Create(ctx, owner.ID, GuidebookCreateInput{Title: "B", Slug: slug}); err != nil {
				t.Fatalf("create %d: %v", i, err)
			}
		}
	})
}

func TestGuidebookServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, _, users := newGuidebookService()
	owner := seedUser(t, users, domain.PlanPro)

	created, err := svc.Create(ctx, owner.ID, GuidebookCreateInput{Title: "Loft", Slug: "loft"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("draft is invisible to guests", func(t *testing.T) {
		if _, _, err := svc.GetPublishedBySlug(ctx, "loft"); !errors.Is(err, ErrGuidebookNotFound) {
			t.Fatalf("expected ErrGuidebookNotFound for draft, got %v", err)
		}
	})

	t.Run("publish exposes the guest page", func(t *testing.T) {
		published, err := svc.Publish(ctx, owner.ID, created.ID)
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
		if published.Status != domain.GuidebookStatusPublished {
			t.Fatalf("expected published, got %q", published.Status)
		}
		guidebook, _, err := svc.GetPublishedBySlug(ctx, "loft")
		if err != nil {
			t.Fatalf("guest lookup: %v", err)
		}
		if guidebook.ID != created.ID {
			t.Fatal("guest lookup returned wrong guidebook")
		}
	})

	t.Run("archive hides it again", func(t *testing.T) {
		if _, err := svc.Archive(ctx, owner.ID, created.ID); err != nil {
			t.Fatalf("archive: %v", err)
		}
		if _, _, err := svc.GetPublishedBySlug(ctx, "loft"); !errors.Is(err, ErrGuidebookNotFound) {
			t.Fatalf("expected ErrGuidebookNotFound after archive, got %v", err)
		}
	})

	t.Run("only the owner can manage it", func(t *testing.T) {
		stranger := seedUser(t, users, domain.PlanPro)
		if _, err := svc.Publish(ctx, stranger.ID, created.ID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if err := svc.Delete(ctx, stranger.ID, created.ID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden on delete, got %v", err)
		}
	})

	t.Run("delete removes it from the owner's list", func(t *testing.T) {
		if err := svc.Delete(ctx, owner.ID, created.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		list, err := svc.List(ctx, owner.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("expected empty list after delete, got %d", len(list))
		}
		if _, _, err := svc.Get(ctx, owner.ID, created.ID); !errors.Is(err, ErrGuidebookNotFound) {
			t.Fatalf("expected ErrGuidebookNotFound after delete, got %v", err)
		}
	})
}
