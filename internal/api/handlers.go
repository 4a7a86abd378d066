package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"intents/internal/intents"
	"intents/internal/store"
)

type formData struct {
	Message    string
	Intents    []string
	Content    string
	Parameters []string
	IntentName string
}

type codeBody struct {
	Code *string `json:"code"`
}

type createBody struct {
	IntentType string `json:"intent_type"`
	IntentName string `json:"intent_name"`
}

// intentName returns the intent_name query parameter, answering 400 itself
// when it is missing.
func intentName(w http.ResponseWriter, r *http.Request, plain bool) (string, bool) {
	name := strings.TrimSpace(r.URL.Query().Get("intent_name"))
	if name != "" {
		return name, true
	}
	const msg = "⚠️ Missing query parameter 'intent_name'"
	if plain {
		writeText(w, http.StatusBadRequest, msg)
	} else {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
	}
	return "", false
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data formData) {
	names, err := s.svc.List(r.Context())
	if err != nil {
		s.log.Warn("⚠️ [API] could not list intents", zap.Error(err))
		names = []string{}
	}
	data.Intents = names
	if data.Parameters == nil {
		data.Parameters = []string{}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, data); err != nil {
		s.log.Error("❌ [API] template render failed", zap.Error(err))
	}
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, formData{})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("intent_name"))
	description := r.FormValue("description")
	if name == "" || strings.TrimSpace(description) == "" {
		s.render(w, r, http.StatusBadRequest, formData{
			Message:    "⚠️ Both intent_name and description are required.",
			IntentName: name,
		})
		return
	}

	res, err := s.svc.Generate(r.Context(), name, description)
	if err != nil {
		s.render(w, r, statusFor(err), formData{Message: "⚠️ " + err.Error(), IntentName: name})
		return
	}
	s.render(w, r, http.StatusOK, formData{
		Message:    res.Message,
		Content:    res.Code,
		Parameters: res.Parameters,
		IntentName: res.Name,
	})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	name, ok := intentName(w, r, true)
	if !ok {
		return
	}
	code, err := s.svc.Read(r.Context(), name)
	if err != nil {
		writeText(w, statusFor(err), "⚠️ "+err.Error())
		return
	}
	writeText(w, http.StatusOK, code)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, ok := intentName(w, r, false)
	if !ok {
		return
	}
	if err := s.svc.Delete(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("✅ Intent '%s' deleted.", store.Normalize(name)),
	})
}

func (s *Server) handleSaveEdited(w http.ResponseWriter, r *http.Request) {
	name, ok := intentName(w, r, false)
	if !ok {
		return
	}
	var body codeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == nil {
		writeError(w, fmt.Errorf("%w: body must be {\"code\": \"...\"}", intents.ErrBadRequest))
		return
	}
	if err := s.svc.SaveEdited(r.Context(), name, *body.Code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "✅ Code updated."})
}

func (s *Server) handleSaveParams(w http.ResponseWriter, r *http.Request) {
	name, ok := intentName(w, r, false)
	if !ok {
		return
	}
	params, err := decodeParams(r.Body)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", intents.ErrBadRequest, err))
		return
	}
	if err := s.svc.SaveParameters(r.Context(), name, params); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "✅ Parameters saved."})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	name, ok := intentName(w, r, false)
	if !ok {
		return
	}
	v, err := s.svc.Validate(r.Context(), name)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{
			"status":  intents.StatusError,
			"message": "⚠️ " + err.Error(),
		})
		return
	}

	resp := map[string]interface{}{
		"status":  v.Status,
		"message": v.Message,
	}
	if v.Status == intents.StatusError {
		resp["code"] = v.Code
		resp["kind"] = v.Kind
	}
	if v.Kind == intents.KindSyntax {
		resp["line"] = v.Line
		resp["column"] = v.Column
	}
	if v.Output != "" {
		resp["output"] = v.Output
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFixErrors(w http.ResponseWriter, r *http.Request) {
	var body codeBody
	_ = json.NewDecoder(r.Body).Decode(&body)
	code := ""
	if body.Code != nil {
		code = *body.Code
	}

	res, err := s.svc.FixErrors(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fixed_code": res.FixedCode,
		"parameters": res.Parameters,
		"message":    res.Message,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body createBody
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, fmt.Errorf("%w: invalid JSON body: %v", intents.ErrBadRequest, err))
			return
		}
	} else {
		body.IntentType = r.FormValue("intent_type")
		body.IntentName = r.FormValue("intent_name")
	}
	if strings.TrimSpace(body.IntentName) == "" || strings.TrimSpace(body.IntentType) == "" {
		writeError(w, fmt.Errorf("%w: intent_type and intent_name are required", intents.ErrBadRequest))
		return
	}

	path, err := s.svc.Scaffold(r.Context(), body.IntentType, strings.TrimSpace(body.IntentName))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("✅ Intent '%s' created in %s", body.IntentName, path),
		"path":    path,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	name, ok := intentName(w, r, false)
	if !ok {
		return
	}
	m, err := s.svc.Status(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, fmt.Errorf("%w: limit must be a positive integer", intents.ErrBadRequest))
			return
		}
		limit = n
	}
	events, err := s.svc.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
