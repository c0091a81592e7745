package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blitz-trivia-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const quizColumns = `id, title, description, host_fid, host_username, host_wallet_address,
	category, difficulty, entry_fee::text, prize_pool::text, max_participants,
	current_participants, status, start_time, end_time, created_at, updated_at`

const participantColumns = `id, quiz_id, fid, username, wallet_address, score, streak,
	joined_at, completed_at, rewarded_at`

// CatalogStore persists quizzes, questions, participants and answers with pgx.
// Capacity and uniqueness are enforced by conditional updates and constraints,
// so it is safe to share between processes.
type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

func (s *CatalogStore) CreateQuiz(ctx context.Context, quiz domain.Quiz, questions []domain.Question) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO quizzes (id, title, description, host_fid, host_username,
			host_wallet_address, category, difficulty, entry_fee, prize_pool, max_participants,
			current_participants, status, start_time, end_time, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::numeric,$10::numeric,$11,0,$12,$13,$14,$15,$16)`,
			quiz.ID, quiz.Title, quiz.Description, quiz.HostFid, quiz.HostUsername,
			quiz.HostWalletAddress, quiz.Category, string(quiz.Difficulty), quiz.EntryFee.String(),
			quiz.PrizePool.String(), quiz.MaxParticipants, string(quiz.Status), quiz.StartTime,
			quiz.EndTime, quiz.CreatedAt, quiz.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.NewError(domain.KindConflict, "quiz id already exists")
			}
			return fmt.Errorf("insert quiz: %w", err)
		}

		batch := &pgx.Batch{}
		for _, q := range questions {
			batch.Queue(`INSERT INTO questions (id, quiz_id, question, options, correct_answer,
				points, time_limit, position) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				q.ID, quiz.ID, q.Question, q.Options, q.CorrectAnswer, q.Points, q.TimeLimit, q.Order)
		}
		br := tx.SendBatch(ctx, batch)
		for range questions {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert question: %w", err)
			}
		}
		return br.Close()
	})
}

func (s *CatalogStore) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, quizID)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

func (s *CatalogStore) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.HostFid != 0 {
		args = append(args, filter.HostFid)
		where = append(where, fmt.Sprintf("host_fid=$%d", len(args)))
	}
	query := `SELECT ` + quizColumns + ` FROM quizzes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()
	out := []domain.Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *CatalogStore) Questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, quiz_id, question, options, correct_answer, points,
		time_limit, position FROM questions WHERE quiz_id=$1 ORDER BY position`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()
	out := []domain.Question{}
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Question, &q.Options, &q.CorrectAnswer,
			&q.Points, &q.TimeLimit, &q.Order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		if _, err := s.GetQuiz(ctx, quizID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *CatalogStore) SetStatus(ctx context.Context, quizID string, status domain.QuizStatus, at time.Time) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM quizzes WHERE id=$1 FOR UPDATE`, quizID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return err
		}
		if !domain.QuizStatus(current).CanTransition(status) {
			return domain.ErrInvalidTransition
		}
		_, err = tx.Exec(ctx, `UPDATE quizzes SET status=$2, updated_at=$3 WHERE id=$1`, quizID, string(status), at)
		return err
	})
}

func (s *CatalogStore) AddParticipant(ctx context.Context, p domain.Participant) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `UPDATE quizzes
			SET current_participants = current_participants + 1, updated_at = $2
			WHERE id = $1 AND status = 'active' AND current_participants < max_participants
			RETURNING `+quizColumns, p.QuizID, p.JoinedAt)
		q, err := scanQuiz(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return joinRejection(ctx, tx, p.QuizID)
		}
		if err != nil {
			return fmt.Errorf("reserve seat: %w", err)
		}
		_, err = tx.Exec(ctx, `INSERT INTO participants (id, quiz_id, fid, username, wallet_address,
			score, streak, joined_at) VALUES ($1,$2,$3,$4,$5,0,0,$6)`,
			p.ID, p.QuizID, p.Fid, p.Username, p.WalletAddress, p.JoinedAt)
		if isUniqueViolation(err) {
			return domain.ErrAlreadyJoined
		}
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
		quiz = q
		return nil
	})
	return quiz, err
}

// joinRejection explains why the conditional seat reservation matched no row.
func joinRejection(ctx context.Context, tx pgx.Tx, quizID string) error {
	var (
		status     string
		current    int
		maxAllowed int
	)
	err := tx.QueryRow(ctx, `SELECT status, current_participants, max_participants FROM quizzes WHERE id=$1`, quizID).
		Scan(&status, &current, &maxAllowed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrQuizNotFound
	}
	if err != nil {
		return err
	}
	if domain.QuizStatus(status) != domain.StatusActive {
		return domain.ErrQuizNotJoinable
	}
	return domain.ErrQuizFull
}

func (s *CatalogStore) Participant(ctx context.Context, quizID string, fid int64) (domain.Participant, error) {
	return s.loadParticipant(ctx, s.pool, quizID, fid, false)
}

func (s *CatalogStore) Participants(ctx context.Context, quizID string) ([]domain.Participant, error) {
	if _, err := s.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT `+participantColumns+` FROM participants WHERE quiz_id=$1 ORDER BY seq`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	defer rows.Close()
	var (
		out   []domain.Participant
		index = map[string]int{}
	)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	answers, err := s.pool.Query(ctx, `SELECT a.id, a.participant_id, a.question_id, a.selected_answer,
		a.is_correct, a.time_spent, a.points_earned, a.answered_at
		FROM answers a JOIN participants p ON p.id = a.participant_id
		WHERE p.quiz_id=$1 ORDER BY a.answered_at, a.id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer answers.Close()
	for answers.Next() {
		a, err := scanAnswer(answers)
		if err != nil {
			return nil, err
		}
		if i, ok := index[a.ParticipantID]; ok {
			out[i].Answers = append(out[i].Answers, a)
		}
	}
	if out == nil {
		out = []domain.Participant{}
	}
	return out, answers.Err()
}

func (s *CatalogStore) RecordAnswer(ctx context.Context, quizID string, fid int64, answer domain.Answer) (domain.Participant, error) {
	var updated domain.Participant
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		p, err := s.loadParticipant(ctx, tx, quizID, fid, true)
		if err != nil {
			return err
		}
		if p.Completed() {
			return domain.ErrAlreadyCompleted
		}
		answer.ParticipantID = p.ID
		_, err = tx.Exec(ctx, `INSERT INTO answers (id, participant_id, question_id, selected_answer,
			is_correct, time_spent, points_earned, answered_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			answer.ID, answer.ParticipantID, answer.QuestionID, answer.SelectedAnswer,
			answer.IsCorrect, answer.TimeSpent, answer.PointsEarned, answer.AnsweredAt)
		if isUniqueViolation(err) {
			return domain.ErrAlreadyAnswered
		}
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
		p.ApplyAnswer(answer)
		if _, err := tx.Exec(ctx, `UPDATE participants SET score=$2, streak=$3 WHERE id=$1`, p.ID, p.Score, p.Streak); err != nil {
			return fmt.Errorf("update score: %w", err)
		}
		updated = p
		return nil
	})
	return updated, err
}

func (s *CatalogStore) MarkCompleted(ctx context.Context, quizID string, fid int64, at time.Time) (domain.Participant, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE participants SET completed_at=$3
		WHERE quiz_id=$1 AND fid=$2 AND completed_at IS NULL`, quizID, fid, at)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("mark completed: %w", err)
	}
	p, err := s.Participant(ctx, quizID, fid)
	if err != nil {
		return domain.Participant{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.Participant{}, domain.ErrAlreadyCompleted
	}
	return p, nil
}

func (s *CatalogStore) MarkRewarded(ctx context.Context, quizID string, fid int64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE participants SET rewarded_at=$3
		WHERE quiz_id=$1 AND fid=$2 AND rewarded_at IS NULL`, quizID, fid, at)
	if err != nil {
		return fmt.Errorf("mark rewarded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Participant(ctx, quizID, fid); err != nil {
			return err
		}
		return domain.ErrRewardAlreadyClaimed
	}
	return nil
}

func (s *CatalogStore) ClearRewarded(ctx context.Context, quizID string, fid int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE participants SET rewarded_at=NULL WHERE quiz_id=$1 AND fid=$2`, quizID, fid)
	if err != nil {
		return fmt.Errorf("clear rewarded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotParticipant
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (s *CatalogStore) loadParticipant(ctx context.Context, q querier, quizID string, fid int64, forUpdate bool) (domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE quiz_id=$1 AND fid=$2`
	if forUpdate {
		query += " FOR UPDATE"
	}
	p, err := scanParticipant(q.QueryRow(ctx, query, quizID, fid))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE id=$1)`, quizID).Scan(&exists); err != nil {
			return domain.Participant{}, err
		}
		if !exists {
			return domain.Participant{}, domain.ErrQuizNotFound
		}
		return domain.Participant{}, domain.ErrNotParticipant
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("load participant: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT id, participant_id, question_id, selected_answer, is_correct,
		time_spent, points_earned, answered_at FROM answers WHERE participant_id=$1
		ORDER BY answered_at, id`, p.ID)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return domain.Participant{}, err
		}
		p.Answers = append(p.Answers, a)
	}
	return p, rows.Err()
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		q                   domain.Quiz
		difficulty, status  string
		entryFee, prizePool string
	)
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.HostFid, &q.HostUsername, &q.HostWalletAddress,
		&q.Category, &difficulty, &entryFee, &prizePool, &q.MaxParticipants, &q.CurrentParticipants,
		&status, &q.StartTime, &q.EndTime, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return domain.Quiz{}, err
	}
	q.Difficulty = domain.Difficulty(difficulty)
	q.Status = domain.QuizStatus(status)
	if q.EntryFee, err = decimal.NewFromString(entryFee); err != nil {
		return domain.Quiz{}, fmt.Errorf("entry fee: %w", err)
	}
	if q.PrizePool, err = decimal.NewFromString(prizePool); err != nil {
		return domain.Quiz{}, fmt.Errorf("prize pool: %w", err)
	}
	return q, nil
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	p := domain.Participant{Answers: []domain.Answer{}}
	err := row.Scan(&p.ID, &p.QuizID, &p.Fid, &p.Username, &p.WalletAddress, &p.Score, &p.Streak,
		&p.JoinedAt, &p.CompletedAt, &p.RewardedAt)
	return p, err
}

func scanAnswer(row pgx.Row) (domain.Answer, error) {
	var a domain.Answer
	err := row.Scan(&a.ID, &a.ParticipantID, &a.QuestionID, &a.SelectedAnswer, &a.IsCorrect,
		&a.TimeSpent, &a.PointsEarned, &a.AnsweredAt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("scan answer: %w", err)
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
