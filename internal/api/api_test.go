package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intents/internal/intents"
	"intents/internal/oracle"
	"intents/internal/runner"
	"intents/internal/store"
)

type stubOracle struct {
	text  string
	calls int
}

func (o *stubOracle) Generate(context.Context, string) (oracle.Result, error) {
	o.calls++
	return oracle.Result{Text: o.text, Succeeded: true}, nil
}

type testEnv struct {
	srv    *Server
	store  *store.Store
	oracle *stubOracle
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.New(t.TempDir())
	o := &stubOracle{text: "```python\ndef greet(name, greeting='hi'):\n    print(greeting, name)\n```"}
	svc := intents.New(intents.Deps{Store: st, Oracle: o, Runner: runner.SyntaxOnly{}})
	return &testEnv{srv: NewServer(svc, nil), store: st, oracle: o}
}

func (e *testEnv) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	e.srv.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestFormListsIntents(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Save("alpha", "x = 1"))

	rr := env.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "alpha.py")
}

func TestGenerateRendersCodeAndParameters(t *testing.T) {
	env := newTestEnv(t)
	form := url.Values{"intent_name": {"greet"}, "description": {"greet someone"}}

	rr := env.do(t, http.MethodPost, "/generate/", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "def greet(name, greeting=&#39;hi&#39;)")
	assert.Contains(t, body, `name="greeting"`)
	assert.Contains(t, body, `name="name"`)
	assert.Contains(t, body, "greet.py")

	code, err := env.store.Read("greet")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "# Prompt: greet someone\n\n"))
}

func TestGenerateFoldsFormLineBreaksIntoHeader(t *testing.T) {
	env := newTestEnv(t)
	if interp, err := exec.LookPath(runner.DefaultPython); err == nil {
		svc := intents.New(intents.Deps{Store: env.store, Oracle: env.oracle, Runner: &runner.Python{Interpreter: interp}})
		env.srv = NewServer(svc, nil)
	}

	rr := env.do(t, http.MethodPost, "/generate", "application/x-www-form-urlencoded",
		"intent_name=crlf&description=line+one%0D%0Aline+two%0Dline+three")
	require.Equal(t, http.StatusOK, rr.Code)

	code, err := env.store.Read("crlf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "# Prompt: line one line two line three\n\n"), code)
	assert.NotContains(t, code, "\r")

	rr = env.do(t, http.MethodGet, "/validate_intent?intent_name=crlf", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "success", decode(t, rr)["status"])
}

func TestGenerateRequiresFields(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/generate", "application/x-www-form-urlencoded", "intent_name=x")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, env.oracle.calls)
}

func TestReadIntent(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Save("a", "print('a')"))

	rr := env.do(t, http.MethodGet, "/read_intent?intent_name=a.py", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "print('a')", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")

	rr = env.do(t, http.MethodGet, "/read_intent/?intent_name=missing", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "missing.py")

	rr = env.do(t, http.MethodGet, "/read_intent", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteIntent(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Save("a", "x"))

	rr := env.do(t, http.MethodDelete, "/delete_intent?intent_name=a", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decode(t, rr)["message"], "a.py")

	rr = env.do(t, http.MethodDelete, "/delete_intent?intent_name=a", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, decode(t, rr)["error"], "a.py")
}

func TestSaveEditedCode(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/save_edited_code?intent_name=a", "application/json", `{"code":"x = 2"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	require.NoError(t, env.store.Save("a", "x = 1"))
	rr = env.do(t, http.MethodPost, "/save_edited_code?intent_name=a", "application/json", `{"code":"x = 2"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	code, err := env.store.Read("a")
	require.NoError(t, err)
	assert.Equal(t, "x = 2", code)

	rr = env.do(t, http.MethodPost, "/save_edited_code?intent_name=a", "application/json", `{"other":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSaveParamsPreservesOrderAndRendersValues(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Save("a", "x = 1"))

	body := `{"zeta":"it's","alpha":3.50,"flag":true,"none":null,"items":[1, 2]}`
	rr := env.do(t, http.MethodPost, "/save_params?intent_name=a.py", "application/json", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	code, err := env.store.Read("a")
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n\n# Parameters provided by the user:\n"+
		"zeta = 'it\\'s'\n"+
		"alpha = '3.50'\n"+
		"flag = 'True'\n"+
		"none = 'None'\n"+
		"items = '[1,2]'\n", code)
}

func TestSaveParamsErrors(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/save_params?intent_name=a", "application/json", `{"k":"v"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	require.NoError(t, env.store.Save("a", "x = 1"))
	rr = env.do(t, http.MethodPost, "/save_params?intent_name=a", "application/json", `["k"]`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/save_params?intent_name=a", "application/json", `{"bad key":"v"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestValidateIntent(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/validate_intent?intent_name=nope", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "error", decode(t, rr)["status"])

	require.NoError(t, env.store.Save("bad", "def f(:\n    pass\n"))
	rr = env.do(t, http.MethodGet, "/validate_intent?intent_name=bad", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode(t, rr)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "syntax", out["kind"])
	assert.Equal(t, "def f(:\n    pass\n", out["code"])
	assert.EqualValues(t, 1, out["line"])

	require.NoError(t, env.store.Save("good", "x = 1\n"))
	rr = env.do(t, http.MethodGet, "/validate_intent/?intent_name=good", "", "")
	out = decode(t, rr)
	assert.Equal(t, "success", out["status"])
	assert.NotContains(t, out, "code")
}

func TestFixErrors(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/fix_errors", "application/json", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode(t, rr), "error")
	assert.Zero(t, env.oracle.calls)

	rr = env.do(t, http.MethodPost, "/fix_errors/", "application/json", `{"code":"def greet(name:\n  pass"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode(t, rr)
	assert.Contains(t, out["fixed_code"], "def greet(name, greeting='hi'):")
	assert.Equal(t, []interface{}{"greeting", "name"}, out["parameters"])
	assert.Equal(t, 1, env.oracle.calls)
}

func TestCreateIntent(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/create_intent", "application/json", `{"intent_type":"nlp_to_sql","intent_name":"sql"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodPost, "/create_intent", "application/x-www-form-urlencoded", "intent_type=generic_empty&intent_name=sql")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(t, http.MethodPost, "/create_intent", "application/json", `{"intent_type":"rag_kendra","intent_name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/create_intent", "application/json", `{"intent_type":"generic_empty","intent_name":"../x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusAndEvents(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Save("a", "x = 1"))

	rr := env.do(t, http.MethodGet, "/intent_status?intent_name=a", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "a.py", decode(t, rr)["intent"])

	rr = env.do(t, http.MethodGet, "/intent_status?intent_name=missing", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/intent_events?limit=0", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/intent_events", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthAndMethods(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", decode(t, rr)["status"])

	rr = env.do(t, http.MethodGet, "/delete_intent?intent_name=a", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(&store.NotFoundError{Path: "x.py"}))
	assert.Equal(t, http.StatusBadRequest, statusFor(intents.ErrBadRequest))
	assert.Equal(t, http.StatusConflict, statusFor(store.ErrExists))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
