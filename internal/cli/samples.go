package cli

import (
	"context"

	"blitz-trivia-service/internal/app"
	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/logger"
)

// sampleHostFid owns the seeded quizzes; seeding is skipped once it has any.
const sampleHostFid = 1

func sampleQuizzes() []app.CreateQuizInput {
	return []app.CreateQuizInput{
		{
			Title:           "Crypto Basics",
			Description:     "Wallets, keys and blocks",
			HostFid:         sampleHostFid,
			HostUsername:    "blitz",
			Category:        "crypto",
			Difficulty:      "easy",
			PrizePool:       "1000",
			MaxParticipants: 100,
			Questions: []app.QuestionInput{
				{Question: "What does a private key let you do?", Options: []string{"Sign transactions", "Mine blocks", "Reset a password", "Raise gas limits"}, CorrectAnswer: "Sign transactions"},
				{Question: "Which network is Base built on?", Options: []string{"Solana", "Ethereum", "Bitcoin", "Cosmos"}, CorrectAnswer: "Ethereum"},
				{Question: "What is a block's link to its parent?", Options: []string{"Nonce", "Parent hash", "Gas price", "Timestamp"}, CorrectAnswer: "Parent hash"},
			},
		},
		{
			Title:           "Farcaster Lore",
			Description:     "How well do you know the protocol?",
			HostFid:         sampleHostFid,
			HostUsername:    "blitz",
			Category:        "social",
			Difficulty:      "medium",
			PrizePool:       "500",
			MaxParticipants: 50,
			Questions: []app.QuestionInput{
				{Question: "What identifies a Farcaster account?", Options: []string{"FID", "ENS", "UUID", "Email"}, CorrectAnswer: "FID"},
				{Question: "What is a post on Farcaster called?", Options: []string{"Tweet", "Cast", "Toot", "Note"}, CorrectAnswer: "Cast"},
				{Question: "Where do mini apps run?", Options: []string{"Inside a client", "Only on desktop", "On a validator", "In email"}, CorrectAnswer: "Inside a client"},
			},
		},
		{
			Title:           "Speed Math",
			Description:     "Quick arithmetic",
			HostFid:         sampleHostFid,
			HostUsername:    "blitz",
			Category:        "math",
			Difficulty:      "hard",
			PrizePool:       "250",
			MaxParticipants: 25,
			Questions: []app.QuestionInput{
				{Question: "17 x 6?", Options: []string{"96", "102", "112", "106"}, CorrectAnswer: "102", Points: 20, TimeLimit: 15},
				{Question: "2^10?", Options: []string{"512", "1000", "1024", "2048"}, CorrectAnswer: "1024", Points: 20, TimeLimit: 15},
				{Question: "144 / 12?", Options: []string{"11", "12", "13", "14"}, CorrectAnswer: "12", Points: 20, TimeLimit: 15},
			},
		},
	}
}

func seedSamples(ctx context.Context, catalog *app.QuizCatalog, log *logger.Logger) error {
	existing, err := catalog.List(ctx, domain.QuizFilter{HostFid: sampleHostFid})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, in := range sampleQuizzes() {
		quiz, err := catalog.Create(ctx, in)
		if err != nil {
			return err
		}
		log.Info("seeded sample quiz", "quizID", quiz.ID, "title", quiz.Title)
	}
	return nil
}
