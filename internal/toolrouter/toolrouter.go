// Package toolrouter mounts one route group per configured tool instance.
package toolrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"intents/internal/toolkind"
)

// Entry asks for Count instances of the tool kind Type.
type Entry struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

// DefaultEntries is the stock tool layout.
var DefaultEntries = []Entry{
	{Type: string(toolkind.RAGOpenSearch), Count: 3},
	{Type: string(toolkind.GenericEmpty), Count: 2},
	{Type: string(toolkind.NLPToSQL), Count: 1},
}

// Completer sends a prompt to a model and returns its decoded reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) map[string]interface{}
}

type tool struct {
	kind      toolkind.Kind
	id        int
	completer Completer
	log       *zap.Logger
}

// Register mounts /<type>/<i> for every entry and i in 1..Count. Unknown
// kinds fail before anything is mounted.
func Register(r *mux.Router, entries []Entry, completer Completer, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	kinds := make([]toolkind.Kind, len(entries))
	for i, e := range entries {
		k, err := toolkind.Parse(e.Type)
		if err != nil {
			return 0, err
		}
		if e.Count < 0 {
			return 0, fmt.Errorf("tool %s: negative count %d", e.Type, e.Count)
		}
		kinds[i] = k
	}

	mounted := 0
	for i, e := range entries {
		for id := 1; id <= e.Count; id++ {
			t := &tool{kind: kinds[i], id: id, completer: completer, log: log}
			prefix := fmt.Sprintf("/%s/%d", t.kind, id)
			sub := r.PathPrefix(prefix).Subrouter()
			sub.HandleFunc("", t.handleInfo).Methods(http.MethodGet)
			sub.HandleFunc("/", t.handleInfo).Methods(http.MethodGet)
			sub.HandleFunc("/process", t.handleProcess).Methods(http.MethodPost)
			mounted++
		}
	}
	log.Info("🔌 [ROUTER] tool routers mounted", zap.Int("count", mounted))
	return mounted, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (t *tool) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tool_type":   t.kind.String(),
		"tool_id":     t.id,
		"description": "Tool information endpoint.",
	})
}

func (t *tool) handleProcess(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be a JSON object"})
		return
	}

	input, _ := json.Marshal(data)
	prompt := fmt.Sprintf("Process %s with %s", input, t.kind)
	reply := map[string]interface{}{}
	if t.completer != nil {
		reply = t.completer.Complete(r.Context(), prompt)
	}
	if _, failed := reply["error"]; failed {
		t.log.Warn("⚠️ [ROUTER] model call failed",
			zap.String("tool", t.kind.String()),
			zap.Int("id", t.id),
			zap.Any("error", reply["error"]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result": t.kind.ProcessLabel(),
		"input":  data,
		"ollama": reply,
	})
}
