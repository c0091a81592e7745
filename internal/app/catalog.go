package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultQuestionPoints = 10
	defaultTimeLimit      = 30
	defaultQuizDuration   = 7 * 24 * time.Hour

	featuredLimit = 5
	trendingLimit = 10
)

// QuestionInput describes one question of a quiz being created.
type QuestionInput struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Points        int      `json:"points,omitempty"`
	TimeLimit     int      `json:"timeLimit,omitempty"`
}

// CreateQuizInput is everything needed to create a quiz.
type CreateQuizInput struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	HostFid           int64           `json:"hostFid"`
	HostUsername      string          `json:"hostUsername"`
	HostWalletAddress string          `json:"hostWalletAddress,omitempty"`
	Category          string          `json:"category"`
	Difficulty        string          `json:"difficulty,omitempty"`
	EntryFee          string          `json:"entryFee,omitempty"`
	PrizePool         string          `json:"prizePool,omitempty"`
	MaxParticipants   int             `json:"maxParticipants"`
	StartTime         *time.Time      `json:"startTime,omitempty"`
	EndTime           *time.Time      `json:"endTime,omitempty"`
	Questions         []QuestionInput `json:"questions"`
}

// QuizCatalog owns quiz definitions and rosters.
type QuizCatalog struct {
	store         CatalogStore
	questions     QuestionSource
	locks         Locker
	initialStatus domain.QuizStatus
	log           *logger.Logger
	now           func() time.Time
}

// NewQuizCatalog wires the catalog. questions may be a cache in front of the
// store; nil falls back to the store itself.
func NewQuizCatalog(store CatalogStore, questions QuestionSource, locks Locker, initialStatus domain.QuizStatus, log *logger.Logger) *QuizCatalog {
	if questions == nil {
		questions = store
	}
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if !initialStatus.Valid() {
		initialStatus = domain.StatusActive
	}
	return &QuizCatalog{
		store:         store,
		questions:     questions,
		locks:         locks,
		initialStatus: initialStatus,
		log:           log.With("component", "QuizCatalog"),
		now:           time.Now,
	}
}

// WithClock replaces the time source. Used by tests and seeding.
func (c *QuizCatalog) WithClock(now func() time.Time) *QuizCatalog {
	c.now = now
	return c
}

// ParticipantID derives the stable participant id for (quiz, fid).
func ParticipantID(quizID string, fid int64) string {
	return "participant_" + quizID + "_" + strconv.FormatInt(fid, 10)
}

func questionID(quizID string, idx int) string {
	return fmt.Sprintf("q_%s_%d", quizID, idx)
}

// Create validates in and persists the quiz with its questions.
func (c *QuizCatalog) Create(ctx context.Context, in CreateQuizInput) (domain.Quiz, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" ||
		strings.TrimSpace(in.Category) == "" || in.HostFid <= 0 || strings.TrimSpace(in.HostUsername) == "" {
		return domain.Quiz{}, domain.Validation("missing required fields")
	}
	difficulty := domain.Difficulty(in.Difficulty)
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}
	if !difficulty.Valid() {
		return domain.Quiz{}, domain.Validation("difficulty must be easy, medium or hard")
	}
	entryFee, err := parseAmount("entry fee", in.EntryFee)
	if err != nil {
		return domain.Quiz{}, err
	}
	prizePool, err := parseAmount("prize pool", in.PrizePool)
	if err != nil {
		return domain.Quiz{}, err
	}
	if in.MaxParticipants < 1 {
		return domain.Quiz{}, domain.Validation("max participants must be at least 1")
	}
	if len(in.Questions) == 0 {
		return domain.Quiz{}, domain.Validation("at least one question is required")
	}

	now := c.now().UTC()
	start := now
	if in.StartTime != nil {
		start = in.StartTime.UTC()
	}
	end := start.Add(defaultQuizDuration)
	if in.EndTime != nil {
		end = in.EndTime.UTC()
	}
	if end.Before(start) {
		return domain.Quiz{}, domain.Validation("end time must not be before start time")
	}

	quiz := domain.Quiz{
		ID:                uuid.NewString(),
		Title:             strings.TrimSpace(in.Title),
		Description:       strings.TrimSpace(in.Description),
		HostFid:           in.HostFid,
		HostUsername:      in.HostUsername,
		HostWalletAddress: in.HostWalletAddress,
		Category:          strings.TrimSpace(in.Category),
		Difficulty:        difficulty,
		EntryFee:          entryFee,
		PrizePool:         prizePool,
		MaxParticipants:   in.MaxParticipants,
		Status:            c.initialStatus,
		StartTime:         start,
		EndTime:           end,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	questions := make([]domain.Question, 0, len(in.Questions))
	for i, qi := range in.Questions {
		q, err := buildQuestion(quiz.ID, i, qi)
		if err != nil {
			return domain.Quiz{}, err
		}
		questions = append(questions, q)
	}

	if err := c.store.CreateQuiz(ctx, quiz, questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	c.log.Info("quiz created", "quizID", quiz.ID, "host", quiz.HostFid, "questions", len(questions), "status", quiz.Status)
	return quiz, nil
}

func buildQuestion(quizID string, idx int, in QuestionInput) (domain.Question, error) {
	pos := idx + 1
	if strings.TrimSpace(in.Question) == "" {
		return domain.Question{}, domain.Validation(fmt.Sprintf("question %d has no text", pos))
	}
	if len(in.Options) < 2 {
		return domain.Question{}, domain.Validation(fmt.Sprintf("question %d needs at least two options", pos))
	}
	q := domain.Question{
		ID:            questionID(quizID, idx),
		QuizID:        quizID,
		Question:      strings.TrimSpace(in.Question),
		Options:       append([]string(nil), in.Options...),
		CorrectAnswer: in.CorrectAnswer,
		Points:        in.Points,
		TimeLimit:     in.TimeLimit,
		Order:         idx,
	}
	if !q.HasOption(q.CorrectAnswer) {
		return domain.Question{}, domain.Validation(fmt.Sprintf("question %d: correct answer is not one of the options", pos))
	}
	if q.Points <= 0 {
		q.Points = defaultQuestionPoints
	}
	if q.TimeLimit <= 0 {
		q.TimeLimit = defaultTimeLimit
	}
	return q, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domain.Validation(field + " must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Zero, domain.Validation(field + " must not be negative")
	}
	if !domain.ValidTokenAmount(d) {
		return decimal.Zero, fmt.Errorf("%w: %s has more than %d decimal places", domain.ErrInvalidAmount, field, domain.TokenDecimals)
	}
	return d, nil
}

func (c *QuizCatalog) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quizID == "" {
		return domain.Quiz{}, domain.Validation("quiz id is required")
	}
	return c.store.GetQuiz(ctx, quizID)
}

// Questions returns the ordered question list, served from the cache when one is wired.
func (c *QuizCatalog) Questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	if quizID == "" {
		return nil, domain.Validation("quiz id is required")
	}
	return c.questions.Questions(ctx, quizID)
}

// List returns quizzes matching filter, newest first.
func (c *QuizCatalog) List(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	quizzes, err := c.store.ListQuizzes(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
	return quizzes, nil
}

// Join adds the user to the quiz roster.
func (c *QuizCatalog) Join(ctx context.Context, quizID string, fid int64, username, address string) (domain.Participant, error) {
	if quizID == "" || fid <= 0 || strings.TrimSpace(username) == "" {
		return domain.Participant{}, domain.Validation("missing required fields")
	}
	unlock, err := c.locks.Lock(ctx, "join:"+quizID)
	if err != nil {
		return domain.Participant{}, err
	}
	defer unlock()

	quiz, err := c.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Participant{}, err
	}
	if quiz.Status != domain.StatusActive {
		return domain.Participant{}, domain.ErrQuizNotJoinable
	}
	if quiz.Full() {
		return domain.Participant{}, domain.ErrQuizFull
	}
	if _, err := c.store.Participant(ctx, quizID, fid); err == nil {
		return domain.Participant{}, domain.ErrAlreadyJoined
	} else if !errors.Is(err, domain.ErrNotParticipant) {
		return domain.Participant{}, err
	}

	p := domain.Participant{
		ID:            ParticipantID(quizID, fid),
		QuizID:        quizID,
		Fid:           fid,
		Username:      username,
		WalletAddress: address,
		Answers:       []domain.Answer{},
		JoinedAt:      c.now().UTC(),
	}
	updated, err := c.store.AddParticipant(ctx, p)
	if err != nil {
		return domain.Participant{}, err
	}
	c.log.Info("participant joined", "quizID", quizID, "fid", fid, "participants", updated.CurrentParticipants)
	return p, nil
}

// Featured returns up to five active quizzes that have players, busiest first.
func (c *QuizCatalog) Featured(ctx context.Context) ([]domain.Quiz, error) {
	quizzes, err := c.store.ListQuizzes(ctx, domain.QuizFilter{Status: domain.StatusActive})
	if err != nil {
		return nil, err
	}
	out := quizzes[:0]
	for _, q := range quizzes {
		if q.CurrentParticipants > 0 {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CurrentParticipants > out[j].CurrentParticipants
	})
	if len(out) > featuredLimit {
		out = out[:featuredLimit]
	}
	return out, nil
}

// Trending returns up to ten active quizzes ranked by prize pool times players.
func (c *QuizCatalog) Trending(ctx context.Context) ([]domain.Quiz, error) {
	quizzes, err := c.store.ListQuizzes(ctx, domain.QuizFilter{Status: domain.StatusActive})
	if err != nil {
		return nil, err
	}
	weight := func(q domain.Quiz) decimal.Decimal {
		return q.PrizePool.Mul(decimal.NewFromInt(int64(q.CurrentParticipants)))
	}
	sort.SliceStable(quizzes, func(i, j int) bool {
		return weight(quizzes[i]).GreaterThan(weight(quizzes[j]))
	})
	if len(quizzes) > trendingLimit {
		quizzes = quizzes[:trendingLimit]
	}
	return quizzes, nil
}

// SetStatus moves a quiz along draft -> active -> completed. Only the host may do it.
func (c *QuizCatalog) SetStatus(ctx context.Context, quizID string, hostFid int64, status domain.QuizStatus) (domain.Quiz, error) {
	if quizID == "" || hostFid <= 0 {
		return domain.Quiz{}, domain.Validation("missing required fields")
	}
	if !status.Valid() {
		return domain.Quiz{}, domain.Validation("unknown status " + strconv.Quote(string(status)))
	}
	unlock, err := c.locks.Lock(ctx, "join:"+quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	defer unlock()

	quiz, err := c.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.HostFid != hostFid {
		return domain.Quiz{}, domain.ErrNotHost
	}
	if !quiz.Status.CanTransition(status) {
		return domain.Quiz{}, fmt.Errorf("%s -> %s: %w", quiz.Status, status, domain.ErrInvalidTransition)
	}
	at := c.now().UTC()
	if err := c.store.SetStatus(ctx, quizID, status, at); err != nil {
		return domain.Quiz{}, err
	}
	quiz.Status = status
	quiz.UpdatedAt = at
	c.log.Info("quiz status changed", "quizID", quizID, "status", status)
	return quiz, nil
}
