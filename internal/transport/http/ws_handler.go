package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"blitz-trivia-service/internal/app"
	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/logger"
	"github.com/gorilla/websocket"
)

// WSHandler is a per-connection play channel: a joined participant submits
// answers and completes the quiz over one socket instead of polling.
type WSHandler struct {
	session  *app.QuizSession
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(session *app.QuizSession, log *logger.Logger) *WSHandler {
	return &WSHandler{
		session: session,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
	TimeSpent      int    `json:"timeSpent"`
}

type answerResult struct {
	QuestionID string `json:"questionId"`
	app.AnswerOutcome
}

type completedPayload struct {
	FinalScore int `json:"finalScore"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string      `json:"message"`
	Kind    domain.Kind `json:"kind"`
}

func errorMessage(err error) outboundMessage {
	msg := err.Error()
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		msg = "internal server error"
	}
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg, Kind: kind}}
}

// ServeWS upgrades the request and serves answer/complete messages for one participant.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	fid, err := strconv.ParseInt(r.URL.Query().Get("fid"), 10, 64)
	if quizID == "" || err != nil || fid <= 0 {
		writeError(w, h.log, domain.Validation("missing quizId or fid"))
		return
	}
	participant, err := h.session.Participant(r.Context(), quizID, fid)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	// single writer; gorilla connections do not allow concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write failed", "quizID", quizID, "fid", fid, "error", err)
				return
			}
		}
	}()

	emit := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	emit(outboundMessage{Type: "joined", Payload: participant})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emit(errorMessage(domain.Validation("invalid answer payload")))
				continue
			}
			out, err := h.session.SubmitAnswer(r.Context(), quizID, fid, payload.QuestionID, payload.SelectedAnswer, payload.TimeSpent)
			if err != nil {
				emit(errorMessage(err))
				continue
			}
			emit(outboundMessage{Type: "answerResult", Payload: answerResult{QuestionID: payload.QuestionID, AnswerOutcome: out}})
		case "complete":
			score, err := h.session.Complete(r.Context(), quizID, fid)
			if err != nil {
				emit(errorMessage(err))
				continue
			}
			emit(outboundMessage{Type: "completed", Payload: completedPayload{FinalScore: score}})
		default:
			emit(errorMessage(domain.Validation("unsupported message type")))
		}
	}

	close(send)
	<-writerDone
}
