package http

import (
	"encoding/json"
	"net/http"

	"blitz-trivia-service/internal/app"
	"blitz-trivia-service/internal/logger"
)

// GameResultHandler serves POST /api/game-result.
type GameResultHandler struct {
	results *app.GameResults
	log     *logger.Logger
}

func NewGameResultHandler(results *app.GameResults, log *logger.Logger) *GameResultHandler {
	return &GameResultHandler{results: results, log: log}
}

type gameResultRequest struct {
	Fid            int64           `json:"fid"`
	Username       string          `json:"username"`
	WalletAddress  string          `json:"walletAddress"`
	Score          int             `json:"score"`
	Streak         int             `json:"streak"`
	RoundID        json.RawMessage `json:"roundId"`
	IsCorrect      bool            `json:"isCorrect"`
	Question       string          `json:"question"`
	SelectedAnswer string          `json:"selectedAnswer"`
	CorrectAnswer  string          `json:"correctAnswer"`
	Context        json.RawMessage `json:"context"`
}

func (h *GameResultHandler) Post(w http.ResponseWriter, r *http.Request) {
	_, raw, err := readAction(w, r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req gameResultRequest
	if err := decodeStrict(raw, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	out, err := h.results.Submit(r.Context(), app.RoundResult{
		Fid:            req.Fid,
		Username:       req.Username,
		WalletAddress:  req.WalletAddress,
		Score:          req.Score,
		Streak:         req.Streak,
		RoundID:        roundID(req.RoundID),
		IsCorrect:      req.IsCorrect,
		Question:       req.Question,
		SelectedAnswer: req.SelectedAnswer,
		CorrectAnswer:  req.CorrectAnswer,
		Context:        parseContext(req.Context),
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, body{
		"tokenReward":         out.TokenReward,
		"tokenAmount":         out.TokenAmount,
		"participationReward": out.ParticipationReward,
		"participationAmount": out.ParticipationAmount,
		"pendingAmount":       out.PendingAmount,
		"message":             out.Message,
	})
}

// roundID accepts the id as either a JSON string or number.
func roundID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
