package http

import (
	"encoding/json"
	"net/http"

	"blitz-trivia-service/internal/app"
	"blitz-trivia-service/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// LeaderboardHandler serves /api/leaderboard: rankings and the pending-claim ledger.
type LeaderboardHandler struct {
	board  *app.Leaderboard
	ledger *app.PendingClaimLedger
	log    *logger.Logger
}

func NewLeaderboardHandler(board *app.Leaderboard, ledger *app.PendingClaimLedger, log *logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{board: board, ledger: ledger, log: log}
}

type leaderboardGetRequest struct {
	Action string `json:"action"`
	Limit  *int   `json:"limit"`
}

type leaderboardUpdateRequest struct {
	Action        string          `json:"action"`
	Fid           int64           `json:"fid"`
	Username      string          `json:"username"`
	Score         int             `json:"score"`
	Streak        int             `json:"streak"`
	WalletAddress string          `json:"walletAddress"`
	Context       json.RawMessage `json:"context"`
}

type claimRequest struct {
	Action        string          `json:"action"`
	Fid           int64           `json:"fid"`
	WalletAddress string          `json:"walletAddress"`
	Context       json.RawMessage `json:"context"`
}

type addPendingRequest struct {
	Action string           `json:"action"`
	Fid    int64            `json:"fid"`
	Amount *decimal.Decimal `json:"amount"`
}

type getPendingRequest struct {
	Action string `json:"action"`
	Fid    int64  `json:"fid"`
}

func (h *LeaderboardHandler) Post(w http.ResponseWriter, r *http.Request) {
	action, raw, err := readAction(w, r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	ctx := r.Context()
	switch action {
	case "get":
		var req leaderboardGetRequest
		if err := decodeStrict(raw, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
		limit := defaultLeaderboardLimit
		if req.Limit != nil {
			limit = *req.Limit
		}
		if limit > maxLeaderboardLimit {
			limit = maxLeaderboardLimit
		}
		entries, err := h.board.Top(ctx, limit)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"leaderboard": entries})

	case "update":
		var req leaderboardUpdateRequest
		if err := decodeStrict(raw, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
		address := resolveWallet(req.WalletAddress, req.Context)
		entry, err := h.board.Update(ctx, req.Fid, req.Username, req.Score, req.Streak, address)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"message": "Leaderboard updated", "entry": entry})

	case "claim":
		var req claimRequest
		if err := decodeStrict(raw, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
		address := resolveWallet(req.WalletAddress, req.Context)
		receipt, err := h.ledger.Claim(ctx, req.Fid, address)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{
			"transactionHash": receipt.TransactionHash,
			"amount":          receipt.Amount.String(),
			"walletAddress":   receipt.Address,
			"message":         "Successfully claimed " + receipt.Amount.String() + " $BLITZ!",
		})

	case "addPending":
		var req addPendingRequest
		if err := decodeStrict(raw, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
		amount := decimal.Zero
		if req.Amount != nil {
			amount = *req.Amount
		}
		total, err := h.ledger.AddPending(ctx, req.Fid, amount)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{
			"pendingAmount": total.String(),
			"message":       amount.String() + " $BLITZ added to pending claims",
		})

	case "getPending":
		var req getPendingRequest
		if err := decodeStrict(raw, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
		amount, err := h.ledger.GetPending(ctx, req.Fid)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeOK(w, body{"pendingAmount": amount.String()})

	default:
		writeError(w, h.log, invalidAction(action))
	}
}
