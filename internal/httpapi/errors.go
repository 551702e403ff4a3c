package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrWong99/nexusvoice/internal/fault"
	"github.com/MrWong99/nexusvoice/internal/observe"
	"github.com/MrWong99/nexusvoice/internal/voice"
)

// errorBody is the JSON shape of every failed API response.
type errorBody struct {
	Error              string                        `json:"error"`
	Kind               fault.Kind                    `json:"kind"`
	Turn               *turnRef                      `json:"turn,omitempty"`
	SupportedLanguages map[string]voice.LanguageInfo `json:"supported_languages,omitempty"`
}

type turnRef struct {
	Index   int    `json:"index"`
	Speaker string `json:"speaker"`
}

// writeError classifies err and writes it as JSON. Upstream and internal
// failures are logged; client errors and disconnects only at debug level.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := fault.HTTPStatus(err)
	body := errorBody{Error: message(err), Kind: fault.KindOf(err)}
	log := observe.Logger(r.Context())

	if body.Kind == fault.KindCanceled {
		log.Debug("request abandoned", "path", r.URL.Path, "err", err)
		w.WriteHeader(status)
		return
	}

	var te *fault.TurnError
	if errors.As(err, &te) {
		body.Turn = &turnRef{Index: te.Index, Speaker: te.Speaker}
	}
	if body.Kind == fault.KindNotSupported {
		body.SupportedLanguages = s.voices.SupportedLanguages()
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "status", status, "kind", body.Kind, "err", err)
	} else {
		log.Debug("request rejected", "path", r.URL.Path, "status", status, "kind", body.Kind, "err", err)
	}
	writeJSON(w, status, body)
}

// message is the client-facing text of err: the classified message when
// there is one, otherwise the full error chain.
func message(err error) string {
	var fe *fault.Error
	if errors.As(err, &fe) && fe.Msg != "" && fe.Err == nil {
		return fe.Msg
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
