package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/logger"
	"blitz-trivia-service/internal/wallet"
)

const maxBodyBytes = 1 << 20

type body map[string]any

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeOK responds with {"success": true, ...payload}.
func writeOK(w http.ResponseWriter, payload body) {
	out := body{"success": true}
	for k, v := range payload {
		out[k] = v
	}
	writeJSON(w, http.StatusOK, out)
}

// writeError maps the error kind to a status. Internal errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	kind := domain.KindOf(err)
	status := statusFor(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		log.Error("request failed", "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, body{"success": false, "error": msg, "kind": kind})
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindExternal:
		if errors.Is(err, domain.ErrMintTimeout) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// envelope carries the action name every POST body starts with.
type envelope struct {
	Action string `json:"action"`
}

// readAction reads the body once and returns its action with the raw bytes
// for a second, strict decode into the per-action struct.
func readAction(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "", nil, domain.Validation("request body too large or unreadable")
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, domain.Validation("invalid JSON body")
	}
	return env.Action, raw, nil
}

// decodeStrict rejects unknown fields so malformed requests never reach the
// component layer.
func decodeStrict(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Validation(fmt.Sprintf("invalid request: %v", err))
	}
	return nil
}

func invalidAction(action string) error {
	return domain.Validation(fmt.Sprintf("invalid action %q", action))
}

// parseContext decodes the host-provided user context leniently; it carries
// many fields this service does not read.
func parseContext(raw json.RawMessage) *wallet.Context {
	if len(raw) == 0 {
		return nil
	}
	var c wallet.Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	return &c
}

func resolveWallet(explicit string, raw json.RawMessage) string {
	address, _ := wallet.Resolve(explicit, parseContext(raw))
	return address
}
