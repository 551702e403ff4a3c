package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/MrWong99/nexusvoice/internal/fault"
	"github.com/MrWong99/nexusvoice/internal/render"
	"github.com/MrWong99/nexusvoice/internal/textproc"
	"github.com/MrWong99/nexusvoice/internal/transcribe"
)

// ttsFilename is the attachment name of single-utterance downloads.
const ttsFilename = "nexusvoice_audio.mp3"

type conversationRequest struct {
	Turns []render.Turn `json:"turns"`
}

type ttsRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	VoiceID  string `json:"voice_id"`
}

type processRequest struct {
	Text     string        `json:"text"`
	Language string        `json:"language"`
	Type     textproc.Type `json:"type"`
}

// handleConversation accepts {"turns":[...]} or a bare array of turns.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.conversation"

	data, err := readBody(w, r, maxJSONBody)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var turns []render.Turn
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &turns)
	} else {
		var req conversationRequest
		err = json.Unmarshal(data, &req)
		turns = req.Turns
	}
	if err != nil {
		s.writeError(w, r, fault.Validation(op, "invalid JSON body: %v", err))
		return
	}

	res, err := s.renderer.Render(r.Context(), turns)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAudio(w, res, "")
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(w, r, "httpapi.tts", &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.renderer.Speak(r.Context(), render.Utterance{
		Text:     req.Text,
		Language: req.Language,
		VoiceID:  req.VoiceID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAudio(w, res, ttsFilename)
}

// handleSTT reads a multipart form with the audio in "file" and an optional
// "language" field.
func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.stt"

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, r, fault.Validation(op, "upload exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, http.ErrMissingFile):
			s.writeError(w, r, fault.Validation(op, "No audio file provided"))
		default:
			s.writeError(w, r, fault.Validation(op, "invalid multipart form: %v", err))
		}
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, fault.Validation(op, "read upload: %v", err))
		return
	}

	res, err := s.transcriber.Transcribe(r.Context(), transcribe.Request{
		Audio:    audio,
		MimeType: header.Header.Get("Content-Type"),
		Language: r.FormValue("language"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decodeJSON(w, r, "httpapi.process", &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.processor.Process(r.Context(), textproc.Request{
		Text:     req.Text,
		Language: req.Language,
		Type:     req.Type,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.voices.SupportedLanguages())
}

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fault.Validation("httpapi.read_body", "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, fault.Validation("httpapi.read_body", "read request body: %v", err)
	}
	return data, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	data, err := readBody(w, r, maxJSONBody)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fault.Validation(op, "invalid JSON body: %v", err)
	}
	return nil
}

// writeAudio writes a binary synthesis result. A non-empty filename marks
// the response as a download.
func writeAudio(w http.ResponseWriter, res *render.Result, filename string) {
	h := w.Header()
	h.Set("Content-Type", res.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(res.Audio)))
	if filename != "" {
		h.Set("Content-Disposition", "attachment; filename="+filename)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Audio)
}
