package qrouter

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/compozy/sqlagent/engine/agent"
	"github.com/compozy/sqlagent/engine/chat"
	"github.com/compozy/sqlagent/engine/infra/server/appstate"
	"github.com/compozy/sqlagent/engine/infra/sqlite"
	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"github.com/compozy/sqlagent/engine/sqltool"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestState(t *testing.T, withAgent bool) *appstate.State {
	t.Helper()
	ctx := t.Context()
	store, _, err := sqlite.Bootstrap(ctx, &sqlite.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	toolkit, err := sqltool.New(ctx, sqlite.NewCatalog(store.DB()), nil, sqltool.Options{})
	require.NoError(t, err)
	var ag *agent.Agent
	if withAgent {
		client := llmadapter.NewLangChainAdapterWithModel(llmadapter.NewMockLLM("mock"), llmadapter.ProviderMock)
		ag, err = agent.New(client, toolkit.Tools(), agent.Config{MaxIterations: 5})
		require.NoError(t, err)
	}
	deps := appstate.NewBaseDeps(nil, store, nil, nil)
	state, err := appstate.NewState(deps, toolkit, ag, chat.NewMemoryHistory(20))
	require.NoError(t, err)
	return state
}

func newTestRouter(state *appstate.State) *gin.Engine {
	r := gin.New()
	if state != nil {
		r.Use(appstate.StateMiddleware(state))
	}
	Register(r)
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTableRoutes(t *testing.T) {
	t.Run("Should list tables", func(t *testing.T) {
		r := newTestRouter(newTestState(t, false))
		w := doRequest(r, http.MethodGet, "/tables", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, []any{"products", "suppliers"}, body["tables"])
	})
	t.Run("Should return table rows", func(t *testing.T) {
		r := newTestRouter(newTestState(t, false))
		w := doRequest(r, http.MethodGet, "/tables/data/products", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "success", body["status"])
		assert.Len(t, body["data"], 5)
	})
	t.Run("Should return 404 with a status error for unknown tables", func(t *testing.T) {
		r := newTestRouter(newTestState(t, false))
		w := doRequest(r, http.MethodGet, "/tables/data/customers", "")
		require.Equal(t, http.StatusNotFound, w.Code)
		body := decode(t, w)
		assert.Equal(t, "error", body["status"])
		assert.Contains(t, body["message"], "customers")
	})
	t.Run("Should return an empty list for empty tables", func(t *testing.T) {
		state := newTestState(t, false)
		_, err := state.Store.DB().ExecContext(t.Context(), "CREATE TABLE empty_t (id INTEGER)")
		require.NoError(t, err)
		w := doRequest(newTestRouter(state), http.MethodGet, "/tables/data/empty_t", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"success","data":[]}`, w.Body.String())
	})
	t.Run("Should match table names case-insensitively", func(t *testing.T) {
		r := newTestRouter(newTestState(t, false))
		w := doRequest(r, http.MethodGet, "/tables/data/Products", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["data"], 5)
	})
	t.Run("Should return a status error when listing fails", func(t *testing.T) {
		state := newTestState(t, false)
		require.NoError(t, state.Store.DB().Close())
		w := doRequest(newTestRouter(state), http.MethodGet, "/tables", "")
		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "error", body["status"])
		assert.NotEmpty(t, body["message"])
	})
	t.Run("Should return a status error when the self test fails", func(t *testing.T) {
		state := newTestState(t, false)
		require.NoError(t, state.Store.DB().Close())
		w := doRequest(newTestRouter(state), http.MethodGet, "/test_sql_tools", "")
		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "error", body["status"])
		assert.Contains(t, body["message"], "list tables")
	})
	t.Run("Should run the tool self test", func(t *testing.T) {
		r := newTestRouter(newTestState(t, false))
		w := doRequest(r, http.MethodGet, "/test_sql_tools", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "products, suppliers", body["tables"])
		assert.Contains(t, body["schema"], "CREATE TABLE")
		assert.NotEmpty(t, body["query_result"])
	})
	t.Run("Should fail without application state", func(t *testing.T) {
		r := newTestRouter(nil)
		w := doRequest(r, http.MethodGet, "/tables", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDirectQueryRoute(t *testing.T) {
	t.Run("Should return the query result", func(t *testing.T) {
		r := newTestRouter(newTestState(t, false))
		w := doRequest(r, http.MethodPost, "/direct_query", `{"query":"SELECT name FROM suppliers WHERE id = 1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, decode(t, w)["result"], "a")
	})
	t.Run("Should reject blank queries", func(t *testing.T) {
		r := newTestRouter(newTestState(t, false))
		w := doRequest(r, http.MethodPost, "/direct_query", `{"query":"  "}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No query provided", decode(t, w)["detail"])
	})
	t.Run("Should wrap execution errors", func(t *testing.T) {
		r := newTestRouter(newTestState(t, false))
		w := doRequest(r, http.MethodPost, "/direct_query", `{"query":"SELECT * FROM nowhere"}`)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		detail, _ := decode(t, w)["detail"].(string)
		assert.True(t, strings.HasPrefix(detail, "Direct query execution error: "))
	})
	t.Run("Should refuse stacked statements and leave tables intact", func(t *testing.T) {
		r := newTestRouter(newTestState(t, false))
		w := doRequest(r, http.MethodPost, "/direct_query", `{"query":"SELECT 1; DROP TABLE products"}`)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, decode(t, w)["detail"], "multiple statements")
		w = doRequest(r, http.MethodGet, "/tables", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []any{"products", "suppliers"}, decode(t, w)["tables"])
	})
	t.Run("Should reject malformed bodies", func(t *testing.T) {
		r := newTestRouter(newTestState(t, false))
		w := doRequest(r, http.MethodPost, "/direct_query", `{"query":`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestChatRoutes(t *testing.T) {
	t.Run("Should answer and keep the conversation", func(t *testing.T) {
		r := newTestRouter(newTestState(t, true))
		w := doRequest(r, http.MethodPost, "/chat_query", `{"input_message":"which tables exist?"}`)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Based on the database: products, suppliers", body["relevant_answer"])
		assert.Equal(t, "assistant: Based on the database: products, suppliers", body["result"])
		assert.Len(t, body["chat_history"], 2)

		w = doRequest(r, http.MethodGet, "/chat_history", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["chat_history"], 2)
	})
	t.Run("Should reject blank input", func(t *testing.T) {
		r := newTestRouter(newTestState(t, true))
		w := doRequest(r, http.MethodPost, "/chat_query", `{"input_message":""}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No query provided", decode(t, w)["detail"])
	})
	t.Run("Should return 503 without an agent", func(t *testing.T) {
		r := newTestRouter(newTestState(t, false))
		w := doRequest(r, http.MethodPost, "/chat_query", `{"input_message":"hello"}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
	t.Run("Should clear the conversation", func(t *testing.T) {
		state := newTestState(t, false)
		require.NoError(t, state.History.Append(t.Context(), chat.NewEntry(chat.RoleUser, "hi")))
		r := newTestRouter(state)
		w := doRequest(r, http.MethodDelete, "/chat_history", "")
		require.Equal(t, http.StatusNoContent, w.Code)
		w = doRequest(r, http.MethodGet, "/chat_history", "")
		assert.Equal(t, []any{}, decode(t, w)["chat_history"])
	})
}

func TestChatStreamRoute(t *testing.T) {
	t.Run("Should emit node events then the result", func(t *testing.T) {
		r := newTestRouter(newTestState(t, true))
		w := doRequest(r, http.MethodPost, "/chat_query/stream", `{"input_message":"list tables"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
		var events []string
		scanner := bufio.NewScanner(strings.NewReader(w.Body.String()))
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event:"); ok {
				events = append(events, strings.TrimSpace(name))
			}
		}
		assert.Equal(t, []string{agent.NodeAssistant, agent.NodeTools, agent.NodeAssistant, "result"}, events)
		assert.Contains(t, w.Body.String(), "Based on the database: products, suppliers")
	})
	t.Run("Should reject blank input before streaming", func(t *testing.T) {
		r := newTestRouter(newTestState(t, true))
		w := doRequest(r, http.MethodPost, "/chat_query/stream", `{"input_message":" "}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No query provided", decode(t, w)["detail"])
	})
}
