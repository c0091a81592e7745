package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Difficulty grades how hard a quiz is.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// QuizStatus gates whether a quiz accepts new participants.
type QuizStatus string

const (
	StatusDraft     QuizStatus = "draft"
	StatusActive    QuizStatus = "active"
	StatusCompleted QuizStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s QuizStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// Only draft -> active and active -> completed are permitted.
func (s QuizStatus) CanTransition(next QuizStatus) bool {
	return (s == StatusDraft && next == StatusActive) || (s == StatusActive && next == StatusCompleted)
}

// Quiz is a hosted quiz with a prize pool.
type Quiz struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	HostFid             int64           `json:"hostFid"`
	HostUsername        string          `json:"hostUsername"`
	HostWalletAddress   string          `json:"hostWalletAddress,omitempty"`
	Category            string          `json:"category"`
	Difficulty          Difficulty      `json:"difficulty"`
	EntryFee            decimal.Decimal `json:"entryFee"`
	PrizePool           decimal.Decimal `json:"prizePool"`
	MaxParticipants     int             `json:"maxParticipants"`
	CurrentParticipants int             `json:"currentParticipants"`
	Status              QuizStatus      `json:"status"`
	StartTime           time.Time       `json:"startTime"`
	EndTime             time.Time       `json:"endTime"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// Full reports whether the quiz has reached its participant cap.
func (q Quiz) Full() bool {
	return q.CurrentParticipants >= q.MaxParticipants
}

// QuizFilter narrows a catalog listing. Zero values match everything.
type QuizFilter struct {
	Category string
	Status   QuizStatus
	HostFid  int64
}

// Match reports whether q passes the filter.
func (f QuizFilter) Match(q Quiz) bool {
	if f.Category != "" && q.Category != f.Category {
		return false
	}
	if f.Status != "" && q.Status != f.Status {
		return false
	}
	if f.HostFid != 0 && q.HostFid != f.HostFid {
		return false
	}
	return true
}

// Question models a multiple-choice question; CorrectAnswer is one of Options.
type Question struct {
	ID            string   `json:"id"`
	QuizID        string   `json:"quizId"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Points        int      `json:"points"`
	TimeLimit     int      `json:"timeLimit"` // seconds
	Order         int      `json:"order"`
}

// HasOption reports whether option is one of the question's choices.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// Participant is one user's progress through one quiz.
type Participant struct {
	ID            string     `json:"id"`
	QuizID        string     `json:"quizId"`
	Fid           int64      `json:"fid"`
	Username      string     `json:"username"`
	WalletAddress string     `json:"walletAddress,omitempty"`
	Score         int        `json:"score"`
	Streak        int        `json:"streak"`
	Answers       []Answer   `json:"answers"`
	JoinedAt      time.Time  `json:"joinedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	RewardedAt    *time.Time `json:"rewardedAt,omitempty"`
}

// Answered reports whether the participant already answered questionID.
func (p Participant) Answered(questionID string) bool {
	for _, a := range p.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// ApplyAnswer records a and updates score and streak: a correct answer adds
// its points and extends the streak, an incorrect one resets the streak.
func (p *Participant) ApplyAnswer(a Answer) {
	p.Answers = append(p.Answers, a)
	if a.IsCorrect {
		p.Score += a.PointsEarned
		p.Streak++
		return
	}
	p.Streak = 0
}

// Completed reports whether the participant finished the quiz.
func (p Participant) Completed() bool {
	return p.CompletedAt != nil
}

// Answer is a single recorded submission.
type Answer struct {
	ID             string    `json:"id"`
	ParticipantID  string    `json:"participantId"`
	QuestionID     string    `json:"questionId"`
	SelectedAnswer string    `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	TimeSpent      int       `json:"timeSpent"`
	PointsEarned   int       `json:"pointsEarned"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// LeaderboardEntry holds the latest known stats for a player.
type LeaderboardEntry struct {
	Fid           int64     `json:"fid"`
	Username      string    `json:"username"`
	Score         int       `json:"score"`
	Streak        int       `json:"streak"`
	LastPlayed    time.Time `json:"lastPlayed"`
	WalletAddress string    `json:"walletAddress,omitempty"`
}

// TokenDecimals is the precision of the reward token. Amounts finer than one
// base unit cannot be minted.
const TokenDecimals int32 = 18

// ValidTokenAmount reports whether d is a whole number of token base units.
func ValidTokenAmount(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(TokenDecimals))
}

// PendingClaim is a staged, not yet minted token balance.
type PendingClaim struct {
	Fid       int64           `json:"fid"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// SortLeaderboard orders entries by score desc, then streak desc, keeping the
// existing order for full ties.
func SortLeaderboard(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Streak > entries[j].Streak
	})
}
