package app

import (
	"context"
	"fmt"
	"time"

	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/logger"
	"github.com/google/uuid"
)

// AnswerOutcome is what a player learns after submitting an answer.
type AnswerOutcome struct {
	IsCorrect    bool `json:"isCorrect"`
	PointsEarned int  `json:"pointsEarned"`
	NewScore     int  `json:"newScore"`
	NewStreak    int  `json:"newStreak"`
}

// QuizSession scores a participant's answers and marks completion.
type QuizSession struct {
	store     CatalogStore
	questions QuestionSource
	locks     Locker
	log       *logger.Logger
	now       func() time.Time
}

func NewQuizSession(store CatalogStore, questions QuestionSource, locks Locker, log *logger.Logger) *QuizSession {
	if questions == nil {
		questions = store
	}
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &QuizSession{
		store:     store,
		questions: questions,
		locks:     locks,
		log:       log.With("component", "QuizSession"),
		now:       time.Now,
	}
}

func playKey(quizID string, fid int64) string {
	return fmt.Sprintf("play:%s/%d", quizID, fid)
}

// SubmitAnswer scores selected against the question and records it once.
func (s *QuizSession) SubmitAnswer(ctx context.Context, quizID string, fid int64, questionID, selected string, timeSpent int) (AnswerOutcome, error) {
	if quizID == "" || fid <= 0 || questionID == "" {
		return AnswerOutcome{}, domain.Validation("missing required fields")
	}
	if timeSpent < 0 {
		timeSpent = 0
	}
	unlock, err := s.locks.Lock(ctx, playKey(quizID, fid))
	if err != nil {
		return AnswerOutcome{}, err
	}
	defer unlock()

	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return AnswerOutcome{}, err
	}
	p, err := s.store.Participant(ctx, quizID, fid)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if p.Completed() {
		return AnswerOutcome{}, domain.ErrAlreadyCompleted
	}
	question, err := s.findQuestion(ctx, quizID, questionID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if p.Answered(questionID) {
		return AnswerOutcome{}, domain.ErrAlreadyAnswered
	}

	correct := selected == question.CorrectAnswer
	points := 0
	if correct {
		points = question.Points
	}
	answer := domain.Answer{
		ID:             uuid.NewString(),
		ParticipantID:  p.ID,
		QuestionID:     questionID,
		SelectedAnswer: selected,
		IsCorrect:      correct,
		TimeSpent:      timeSpent,
		PointsEarned:   points,
		AnsweredAt:     s.now().UTC(),
	}
	updated, err := s.store.RecordAnswer(ctx, quizID, fid, answer)
	if err != nil {
		return AnswerOutcome{}, err
	}
	s.log.Debug("answer recorded", "quizID", quizID, "fid", fid, "questionID", questionID, "correct", correct, "score", updated.Score)
	return AnswerOutcome{
		IsCorrect:    correct,
		PointsEarned: points,
		NewScore:     updated.Score,
		NewStreak:    updated.Streak,
	}, nil
}

func (s *QuizSession) findQuestion(ctx context.Context, quizID, questionID string) (domain.Question, error) {
	questions, err := s.questions.Questions(ctx, quizID)
	if err != nil {
		return domain.Question{}, err
	}
	for _, q := range questions {
		if q.ID == questionID {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// Complete marks the participant finished and returns the final score.
// A second call fails with ErrAlreadyCompleted.
func (s *QuizSession) Complete(ctx context.Context, quizID string, fid int64) (int, error) {
	if quizID == "" || fid <= 0 {
		return 0, domain.Validation("missing required fields")
	}
	unlock, err := s.locks.Lock(ctx, playKey(quizID, fid))
	if err != nil {
		return 0, err
	}
	defer unlock()

	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return 0, err
	}
	p, err := s.store.MarkCompleted(ctx, quizID, fid, s.now().UTC())
	if err != nil {
		return 0, err
	}
	s.log.Info("participant completed quiz", "quizID", quizID, "fid", fid, "score", p.Score)
	return p.Score, nil
}

// Participant returns the caller's current progress in a quiz.
func (s *QuizSession) Participant(ctx context.Context, quizID string, fid int64) (domain.Participant, error) {
	if quizID == "" || fid <= 0 {
		return domain.Participant{}, domain.Validation("missing required fields")
	}
	return s.store.Participant(ctx, quizID, fid)
}
