package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"blitz-trivia-service/internal/domain"
)

// CatalogStore is an in-memory app.CatalogStore. One mutex guards all quizzes,
// which keeps roster and counter updates atomic.
type CatalogStore struct {
	mu           sync.RWMutex
	quizzes      map[string]domain.Quiz
	questions    map[string][]domain.Question
	participants map[string][]*domain.Participant
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		quizzes:      make(map[string]domain.Quiz),
		questions:    make(map[string][]domain.Question),
		participants: make(map[string][]*domain.Participant),
	}
}

func (s *CatalogStore) CreateQuiz(_ context.Context, quiz domain.Quiz, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; ok {
		return domain.NewError(domain.KindConflict, "quiz id already exists")
	}
	s.quizzes[quiz.ID] = quiz
	s.questions[quiz.ID] = cloneQuestions(questions)
	s.participants[quiz.ID] = nil
	return nil
}

func (s *CatalogStore) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q, nil
}

func (s *CatalogStore) ListQuizzes(_ context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		if filter.Match(q) {
			out = append(out, q)
		}
	}
	// map order is random; give callers a deterministic base order
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *CatalogStore) Questions(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qs, ok := s.questions[quizID]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	return cloneQuestions(qs), nil
}

func (s *CatalogStore) SetStatus(_ context.Context, quizID string, status domain.QuizStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	if !q.Status.CanTransition(status) {
		return domain.ErrInvalidTransition
	}
	q.Status = status
	q.UpdatedAt = at
	s.quizzes[quizID] = q
	return nil
}

func (s *CatalogStore) AddParticipant(_ context.Context, p domain.Participant) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[p.QuizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if q.Status != domain.StatusActive {
		return domain.Quiz{}, domain.ErrQuizNotJoinable
	}
	if q.Full() {
		return domain.Quiz{}, domain.ErrQuizFull
	}
	if s.find(p.QuizID, p.Fid) != nil {
		return domain.Quiz{}, domain.ErrAlreadyJoined
	}
	cp := cloneParticipant(p)
	s.participants[p.QuizID] = append(s.participants[p.QuizID], &cp)
	q.CurrentParticipants++
	q.UpdatedAt = p.JoinedAt
	s.quizzes[p.QuizID] = q
	return q, nil
}

func (s *CatalogStore) Participant(_ context.Context, quizID string, fid int64) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.Participant{}, domain.ErrQuizNotFound
	}
	p := s.find(quizID, fid)
	if p == nil {
		return domain.Participant{}, domain.ErrNotParticipant
	}
	return cloneParticipant(*p), nil
}

func (s *CatalogStore) Participants(_ context.Context, quizID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return nil, domain.ErrQuizNotFound
	}
	roster := s.participants[quizID]
	out := make([]domain.Participant, 0, len(roster))
	for _, p := range roster {
		out = append(out, cloneParticipant(*p))
	}
	return out, nil
}

func (s *CatalogStore) RecordAnswer(_ context.Context, quizID string, fid int64, answer domain.Answer) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(quizID, fid)
	if p == nil {
		return domain.Participant{}, domain.ErrNotParticipant
	}
	if p.Completed() {
		return domain.Participant{}, domain.ErrAlreadyCompleted
	}
	if p.Answered(answer.QuestionID) {
		return domain.Participant{}, domain.ErrAlreadyAnswered
	}
	p.ApplyAnswer(answer)
	return cloneParticipant(*p), nil
}

func (s *CatalogStore) MarkCompleted(_ context.Context, quizID string, fid int64, at time.Time) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(quizID, fid)
	if p == nil {
		return domain.Participant{}, domain.ErrNotParticipant
	}
	if p.Completed() {
		return domain.Participant{}, domain.ErrAlreadyCompleted
	}
	t := at
	p.CompletedAt = &t
	return cloneParticipant(*p), nil
}

func (s *CatalogStore) MarkRewarded(_ context.Context, quizID string, fid int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(quizID, fid)
	if p == nil {
		return domain.ErrNotParticipant
	}
	if p.RewardedAt != nil {
		return domain.ErrRewardAlreadyClaimed
	}
	t := at
	p.RewardedAt = &t
	return nil
}

func (s *CatalogStore) ClearRewarded(_ context.Context, quizID string, fid int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(quizID, fid)
	if p == nil {
		return domain.ErrNotParticipant
	}
	p.RewardedAt = nil
	return nil
}

func (s *CatalogStore) find(quizID string, fid int64) *domain.Participant {
	for _, p := range s.participants[quizID] {
		if p.Fid == fid {
			return p
		}
	}
	return nil
}

func cloneParticipant(p domain.Participant) domain.Participant {
	p.Answers = append([]domain.Answer{}, p.Answers...)
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		p.CompletedAt = &t
	}
	if p.RewardedAt != nil {
		t := *p.RewardedAt
		p.RewardedAt = &t
	}
	return p
}
