package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"blitz-trivia-service/internal/app"
	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/logger"
)

// QuizHandler serves /api/quizzes.
type QuizHandler struct {
	catalog     *app.QuizCatalog
	session     *app.QuizSession
	distributor *app.RewardDistributor
	log         *logger.Logger
}

func NewQuizHandler(catalog *app.QuizCatalog, session *app.QuizSession, distributor *app.RewardDistributor, log *logger.Logger) *QuizHandler {
	return &QuizHandler{catalog: catalog, session: session, distributor: distributor, log: log}
}

type createQuizRequest struct {
	Action string `json:"action"`
	app.CreateQuizInput
}

type joinRequest struct {
	Action        string `json:"action"`
	QuizID        string `json:"quizId"`
	Fid           int64  `json:"fid"`
	Username      string `json:"username"`
	WalletAddress string `json:"walletAddress"`
}

type submitAnswerRequest struct {
	Action         string `json:"action"`
	QuizID         string `json:"quizId"`
	Fid            int64  `json:"fid"`
	QuestionID     string `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
	TimeSpent      int    `json:"timeSpent"`
}

type completeRequest struct {
	Action string `json:"action"`
	QuizID string `json:"quizId"`
	Fid    int64  `json:"fid"`
}

type claimRewardRequest struct {
	Action        string          `json:"action"`
	QuizID        string          `json:"quizId"`
	Fid           int64           `json:"fid"`
	WalletAddress string          `json:"walletAddress"`
	Context       json.RawMessage `json:"context"`
}

type setStatusRequest struct {
	Action  string            `json:"action"`
	QuizID  string            `json:"quizId"`
	HostFid int64             `json:"hostFid"`
	Status  domain.QuizStatus `json:"status"`
}

// Get handles the read actions selected by the action query parameter.
func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()
	switch action := q.Get("action"); action {
	case "get":
		quiz, err := h.catalog.Get(ctx, q.Get("quizId"))
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"quiz": quiz})
	case "questions":
		questions, err := h.catalog.Questions(ctx, q.Get("quizId"))
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"questions": questions})
	case "list":
		filter := domain.QuizFilter{Category: q.Get("category"), Status: domain.QuizStatus(q.Get("status"))}
		if raw := q.Get("hostFid"); raw != "" {
			fid, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, h.log, domain.Validation("hostFid must be a number"))
				return
			}
			filter.HostFid = fid
		}
		quizzes, err := h.catalog.List(ctx, filter)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"quizzes": quizzes, "total": len(quizzes)})
	case "featured":
		quizzes, err := h.catalog.Featured(ctx)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"featuredQuizzes": quizzes})
	case "trending":
		quizzes, err := h.catalog.Trending(ctx)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"trendingQuizzes": quizzes})
	default:
		writeError(w, h.log, invalidAction(action))
	}
}

// Post dispatches the write actions named in the body.
func (h *QuizHandler) Post(w http.ResponseWriter, r *http.Request) {
	action, raw, err := readAction(w, r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	ctx := r.Context()
	switch action {
	case "create":
		var req createQuizRequest
		if err := decodeStrict(raw, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
		quiz, err := h.catalog.Create(ctx, req.CreateQuizInput)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"quiz": quiz, "message": "Quiz created successfully"})

	case "join":
		var req joinRequest
		if err := decodeStrict(raw, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
		p, err := h.catalog.Join(ctx, req.QuizID, req.Fid, req.Username, req.WalletAddress)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"participant": p, "message": "Successfully joined quiz"})

	case "submit-answer":
		var req submitAnswerRequest
		if err := decodeStrict(raw, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
		out, err := h.session.SubmitAnswer(ctx, req.QuizID, req.Fid, req.QuestionID, req.SelectedAnswer, req.TimeSpent)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{
			"isCorrect":    out.IsCorrect,
			"pointsEarned": out.PointsEarned,
			"newScore":     out.NewScore,
			"newStreak":    out.NewStreak,
		})

	case "complete":
		var req completeRequest
		if err := decodeStrict(raw, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
		score, err := h.session.Complete(ctx, req.QuizID, req.Fid)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"message": "Quiz completed", "finalScore": score})

	case "claim-reward":
		var req claimRewardRequest
		if err := decodeStrict(raw, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
		address := resolveWallet(req.WalletAddress, req.Context)
		out, err := h.distributor.Distribute(ctx, req.QuizID, req.Fid, address)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		resp := body{
			"rewardAmount": out.RewardAmount.String(),
			"mode":         out.Mode,
		}
		if out.Rank > 0 {
			resp["rank"] = out.Rank
		}
		if out.TransactionHash != "" {
			resp["transactionHash"] = out.TransactionHash
		}
		if out.PendingAmount != "" {
			resp["pendingAmount"] = out.PendingAmount
		}
		switch {
		case out.RewardAmount.IsZero():
			resp["message"] = "No reward for this placement"
		case out.Mode == app.PayoutStaged:
			resp["message"] = "Reward added to pending claims: " + out.RewardAmount.String() + " BLITZ"
		default:
			resp["message"] = "Reward claimed! You earned " + out.RewardAmount.String() + " BLITZ tokens"
		}
		writeOK(w, resp)

	case "set-status":
		var req setStatusRequest
		if err := decodeStrict(raw, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
		quiz, err := h.catalog.SetStatus(ctx, req.QuizID, req.HostFid, req.Status)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"quiz": quiz})

	default:
		writeError(w, h.log, invalidAction(action))
	}
}
