package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"blitz-trivia-service/internal/app"
	"blitz-trivia-service/internal/domain"
)

func TestCreateQuizDefaults(t *testing.T) {
	f := newFixture()
	in := quizInput("100", 10, 2)
	in.Difficulty = ""
	in.EntryFee = ""
	in.Questions[1].Points = 0
	quiz, err := f.catalog.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quiz.ID == "" || quiz.Status != domain.StatusActive || quiz.CurrentParticipants != 0 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if quiz.Difficulty != domain.DifficultyMedium || !quiz.EntryFee.IsZero() {
		t.Fatalf("expected defaults, got difficulty %s fee %s", quiz.Difficulty, quiz.EntryFee)
	}
	if !quiz.EndTime.Equal(quiz.StartTime.Add(7 * 24 * time.Hour)) {
		t.Fatalf("expected a week-long window, got %s - %s", quiz.StartTime, quiz.EndTime)
	}

	qs, err := f.catalog.Questions(context.Background(), quiz.ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 2 || qs[0].ID != "q_"+quiz.ID+"_0" || qs[1].Order != 1 {
		t.Fatalf("unexpected questions %+v", qs)
	}
	if qs[1].Points != 10 || qs[1].TimeLimit != 30 {
		t.Fatalf("expected default points/time limit, got %d/%d", qs[1].Points, qs[1].TimeLimit)
	}
	roster, _ := f.catalogStore.Participants(context.Background(), quiz.ID)
	if len(roster) != 0 {
		t.Fatalf("expected empty roster, got %d", len(roster))
	}
}

func TestCreateQuizValidation(t *testing.T) {
	f := newFixture()
	cases := map[string]func(*app.CreateQuizInput){
		"missing title":      func(in *app.CreateQuizInput) { in.Title = " " },
		"missing host":       func(in *app.CreateQuizInput) { in.HostFid = 0 },
		"missing category":   func(in *app.CreateQuizInput) { in.Category = "" },
		"negative fee":       func(in *app.CreateQuizInput) { in.EntryFee = "-1" },
		"bad prize":          func(in *app.CreateQuizInput) { in.PrizePool = "lots" },
		"sub-unit prize":     func(in *app.CreateQuizInput) { in.PrizePool = "0.0000000000000000001" },
		"sub-unit fee":       func(in *app.CreateQuizInput) { in.EntryFee = "1.0000000000000000001" },
		"no questions":       func(in *app.CreateQuizInput) { in.Questions = nil },
		"bad difficulty":     func(in *app.CreateQuizInput) { in.Difficulty = "extreme" },
		"zero capacity":      func(in *app.CreateQuizInput) { in.MaxParticipants = 0 },
		"one option":         func(in *app.CreateQuizInput) { in.Questions[0].Options = []string{"A"} },
		"answer not option":  func(in *app.CreateQuizInput) { in.Questions[0].CorrectAnswer = "Z" },
		"empty question":     func(in *app.CreateQuizInput) { in.Questions[0].Question = "" },
		"end before start": func(in *app.CreateQuizInput) {
			start := time.Now()
			end := start.Add(-time.Hour)
			in.StartTime, in.EndTime = &start, &end
		},
	}
	for name, mutate := range cases {
		in := quizInput("100", 10, 2)
		mutate(&in)
		_, err := f.catalog.Create(context.Background(), in)
		if domain.KindOf(err) != domain.KindValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	all, _ := f.catalog.List(context.Background(), domain.QuizFilter{})
	if len(all) != 0 {
		t.Fatalf("invalid quizzes must not be stored, got %d", len(all))
	}
}

func TestJoinCapacity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz, _ := f.catalog.Create(ctx, quizInput("100", 3, 1))

	for fid := int64(1); fid <= 3; fid++ {
		if _, err := f.catalog.Join(ctx, quiz.ID, fid, "player", ""); err != nil {
			t.Fatalf("join %d: %v", fid, err)
		}
	}
	if _, err := f.catalog.Join(ctx, quiz.ID, 4, "player", ""); !errors.Is(err, domain.ErrQuizFull) {
		t.Fatalf("expected full, got %v", err)
	}
	got, _ := f.catalog.Get(ctx, quiz.ID)
	if got.CurrentParticipants != 3 {
		t.Fatalf("expected exactly 3 participants, got %d", got.CurrentParticipants)
	}
}

func TestJoinCapacityConcurrent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz, _ := f.catalog.Create(ctx, quizInput("100", 4, 1))

	var wg sync.WaitGroup
	for fid := int64(1); fid <= 12; fid++ {
		wg.Add(1)
		go func(fid int64) {
			defer wg.Done()
			_, err := f.catalog.Join(ctx, quiz.ID, fid, "player", "")
			if err != nil && !errors.Is(err, domain.ErrQuizFull) {
				t.Errorf("join %d: %v", fid, err)
			}
		}(fid)
	}
	wg.Wait()
	got, _ := f.catalog.Get(ctx, quiz.ID)
	roster, _ := f.catalogStore.Participants(ctx, quiz.ID)
	if got.CurrentParticipants != 4 || len(roster) != 4 {
		t.Fatalf("counter %d and roster %d must both be 4", got.CurrentParticipants, len(roster))
	}
}

func TestJoinRules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.catalog.Join(ctx, "nope", 1, "player", ""); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	quiz, _ := f.catalog.Create(ctx, quizInput("100", 3, 1))
	p, err := f.catalog.Join(ctx, quiz.ID, 1, "player", addrA)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p.ID != app.ParticipantID(quiz.ID, 1) || p.WalletAddress != addrA {
		t.Fatalf("unexpected participant %+v", p)
	}
	if _, err := f.catalog.Join(ctx, quiz.ID, 1, "player", ""); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Fatalf("expected already joined, got %v", err)
	}
	if _, err := f.catalog.SetStatus(ctx, quiz.ID, 100, domain.StatusCompleted); err != nil {
		t.Fatalf("complete quiz: %v", err)
	}
	if _, err := f.catalog.Join(ctx, quiz.ID, 2, "player", ""); !errors.Is(err, domain.ErrQuizNotJoinable) {
		t.Fatalf("expected not joinable, got %v", err)
	}
}

func TestSetStatusLifecycle(t *testing.T) {
	f := newFixture()
	f.catalog = app.NewQuizCatalog(f.catalogStore, nil, f.locks, domain.StatusDraft, f.log)
	ctx := context.Background()
	quiz, _ := f.catalog.Create(ctx, quizInput("100", 3, 1))
	if quiz.Status != domain.StatusDraft {
		t.Fatalf("expected draft, got %s", quiz.Status)
	}
	if _, err := f.catalog.Join(ctx, quiz.ID, 1, "player", ""); !errors.Is(err, domain.ErrQuizNotJoinable) {
		t.Fatalf("draft quiz must not be joinable, got %v", err)
	}
	if _, err := f.catalog.SetStatus(ctx, quiz.ID, 999, domain.StatusActive); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected not host, got %v", err)
	}
	if _, err := f.catalog.SetStatus(ctx, quiz.ID, 100, domain.StatusCompleted); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	got, err := f.catalog.SetStatus(ctx, quiz.ID, 100, domain.StatusActive)
	if err != nil || got.Status != domain.StatusActive {
		t.Fatalf("activate: %v %+v", err, got)
	}
	if _, err := f.catalog.Join(ctx, quiz.ID, 1, "player", ""); err != nil {
		t.Fatalf("join after activation: %v", err)
	}
}

func TestListFeaturedTrending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	f.catalog.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	mk := func(title, prize string, players int, category string) {
		in := quizInput(prize, 20, 1)
		in.Title = title
		in.Category = category
		q, err := f.catalog.Create(ctx, in)
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		for i := 0; i < players; i++ {
			if _, err := f.catalog.Join(ctx, q.ID, int64(1000+i), "p", ""); err != nil {
				t.Fatalf("join %s: %v", title, err)
			}
		}
	}
	mk("a", "100", 1, "crypto")
	mk("b", "10", 5, "crypto")
	mk("c", "1000", 0, "science")
	mk("d", "50", 3, "science")

	list, _ := f.catalog.List(ctx, domain.QuizFilter{})
	if titles(list) != "d,c,b,a" {
		t.Fatalf("list must be newest first, got %s", titles(list))
	}
	list, _ = f.catalog.List(ctx, domain.QuizFilter{Category: "science"})
	if titles(list) != "d,c" {
		t.Fatalf("category filter, got %s", titles(list))
	}

	featured, _ := f.catalog.Featured(ctx)
	if titles(featured) != "b,d,a" {
		t.Fatalf("featured, got %s", titles(featured))
	}
	// weights: a=100, b=50, c=0, d=150
	trending, _ := f.catalog.Trending(ctx)
	if titles(trending) != "d,a,b,c" {
		t.Fatalf("trending, got %s", titles(trending))
	}
}

func titles(qs []domain.Quiz) string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Title
	}
	return strings.Join(out, ",")
}
