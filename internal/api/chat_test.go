package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/chat"
	"github.com/tasknest/tasknest/internal/provider"
	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/testutil"
	"github.com/tasknest/tasknest/internal/tools"
)

// chatResult mirrors the wire shape of a chat response.
type chatResult struct {
	Response       string         `json:"response"`
	ConversationID uuid.UUID      `json:"conversation_id"`
	Actions        []tools.Record `json:"actions"`
}

func newChatTestHandler(t *testing.T, steps ...testutil.ModelStep) (*chatHandler, *testutil.FakeTaskStore) {
	t.Helper()

	tasks := testutil.NewFakeTaskStore()
	registry := tools.NewRegistry(tasks)

	orch, err := chat.New(chat.Config{
		Client:   testutil.NewScriptedModel(steps...),
		Registry: registry,
		Executor: tools.NewExecutor(registry, discardLogger()),
		Logger:   discardLogger(),
	})
	if err != nil {
		t.Fatalf("building orchestrator: %v", err)
	}

	return &chatHandler{orchestrator: orch, logger: discardLogger()}, tasks
}

func TestChatSend_DirectAnswer(t *testing.T) {
	h, _ := newChatTestHandler(t, testutil.TextStep("You have no tasks right now."))

	w := httptest.NewRecorder()
	h.send(w, authedRequest(t, http.MethodPost, "/api/chat", map[string]string{
		"message": "what's on my list?",
	}, uuid.New()))

	if w.Code != http.StatusOK {
		t.Fatalf("send() status = %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp chatResult
	decodeData(t, w, &resp)

	if resp.Response != "You have no tasks right now." {
		t.Errorf("send() response = %q", resp.Response)
	}
	if resp.ConversationID == uuid.Nil {
		t.Error("send() should mint a conversation ID when none is supplied")
	}
	if len(resp.Actions) != 0 {
		t.Errorf("send() actions = %d, want 0", len(resp.Actions))
	}
	// No tool activity still serializes as an empty array, not null.
	if !strings.Contains(w.Body.String(), `"actions":[]`) {
		t.Errorf("send() body should carry an empty actions array: %s", w.Body.String())
	}
}

func TestChatSend_EchoesConversationID(t *testing.T) {
	h, _ := newChatTestHandler(t, testutil.TextStep("Sure."))
	conversationID := uuid.New()

	w := httptest.NewRecorder()
	h.send(w, authedRequest(t, http.MethodPost, "/api/chat", map[string]string{
		"message":         "hello",
		"conversation_id": conversationID.String(),
	}, uuid.New()))

	if w.Code != http.StatusOK {
		t.Fatalf("send() status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp chatResult
	decodeData(t, w, &resp)
	if resp.ConversationID != conversationID {
		t.Errorf("send() conversation_id = %s, want echoed %s", resp.ConversationID, conversationID)
	}
}

func TestChatSend_ExecutesTools(t *testing.T) {
	h, tasks := newChatTestHandler(t,
		testutil.ToolStep(provider.ToolCall{
			ID:   "call_1",
			Type: "function",
			Function: provider.FunctionCall{
				Name:      "create_task",
				Arguments: `{"title":"Buy milk"}`,
			},
		}),
		testutil.TextStep("Added \"Buy milk\" to your list."),
	)
	userID := uuid.New()

	w := httptest.NewRecorder()
	h.send(w, authedRequest(t, http.MethodPost, "/api/chat", map[string]string{
		"message": "remind me to buy milk",
	}, userID))

	if w.Code != http.StatusOK {
		t.Fatalf("send() status = %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp chatResult
	decodeData(t, w, &resp)

	if len(resp.Actions) != 1 {
		t.Fatalf("send() actions = %d, want 1", len(resp.Actions))
	}
	if resp.Actions[0].Tool != "create_task" {
		t.Errorf("send() action tool = %q, want %q", resp.Actions[0].Tool, "create_task")
	}

	// The side effect must have landed in the store.
	listed, err := tasks.List(context.Background(), userID, store.FilterAll)
	if err != nil {
		t.Fatalf("listing tasks: %v", err)
	}
	if len(listed) != 1 || listed[0].Title != "Buy milk" {
		t.Errorf("store contents = %+v, want the created task", listed)
	}
}

func TestChatSend_EmptyMessage(t *testing.T) {
	h, _ := newChatTestHandler(t)

	w := httptest.NewRecorder()
	h.send(w, authedRequest(t, http.MethodPost, "/api/chat", map[string]string{
		"message": "   \t  ",
	}, uuid.New()))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("send(blank) status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	envelope := decodeErrorEnvelope(t, w)
	if envelope.Code != "validation_failed" {
		t.Errorf("send(blank) code = %q, want %q", envelope.Code, "validation_failed")
	}
}

func TestChatSend_MessageLength(t *testing.T) {
	// Limits are counted in runes, so 2000 multibyte characters must pass
	// even though they exceed 2000 bytes.
	t.Run("at limit", func(t *testing.T) {
		h, _ := newChatTestHandler(t, testutil.TextStep("OK."))

		w := httptest.NewRecorder()
		h.send(w, authedRequest(t, http.MethodPost, "/api/chat", map[string]string{
			"message": strings.Repeat("吃", maxChatMessageRunes),
		}, uuid.New()))

		if w.Code != http.StatusOK {
			t.Fatalf("send(2000 runes) status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		h, _ := newChatTestHandler(t)

		w := httptest.NewRecorder()
		h.send(w, authedRequest(t, http.MethodPost, "/api/chat", map[string]string{
			"message": strings.Repeat("a", maxChatMessageRunes+1),
		}, uuid.New()))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("send(2001 runes) status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestChatSend_InvalidConversationID(t *testing.T) {
	h, _ := newChatTestHandler(t)

	w := httptest.NewRecorder()
	h.send(w, authedRequest(t, http.MethodPost, "/api/chat", map[string]string{
		"message":         "hello",
		"conversation_id": "not-a-uuid",
	}, uuid.New()))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("send(bad conversation_id) status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestChatSend_InvalidJSON(t *testing.T) {
	h, _ := newChatTestHandler(t)

	r := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{oops"))
	r = r.WithContext(context.WithValue(r.Context(), ctxKeyUserID, uuid.New()))

	w := httptest.NewRecorder()
	h.send(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("send(bad json) status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestChatSend_NoOrchestrator(t *testing.T) {
	h := &chatHandler{logger: discardLogger()}

	w := httptest.NewRecorder()
	h.send(w, authedRequest(t, http.MethodPost, "/api/chat", map[string]string{
		"message": "hello",
	}, uuid.New()))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("send(no orchestrator) status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	envelope := decodeErrorEnvelope(t, w)
	if envelope.Code != "chat_unavailable" {
		t.Errorf("send(no orchestrator) code = %q, want %q", envelope.Code, "chat_unavailable")
	}
}

func TestChatSend_ProviderFailureDegrades(t *testing.T) {
	h, _ := newChatTestHandler(t, testutil.ErrStep(&provider.Error{
		Provider: "groq",
		Kind:     provider.KindTransient,
		Status:   503,
		Err:      errors.New("upstream busy"),
	}))
	conversationID := uuid.New()

	w := httptest.NewRecorder()
	h.send(w, authedRequest(t, http.MethodPost, "/api/chat", map[string]string{
		"message":         "hello",
		"conversation_id": conversationID.String(),
	}, uuid.New()))

	// Provider trouble is not the client's problem: 200 with an apology.
	if w.Code != http.StatusOK {
		t.Fatalf("send(provider down) status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp chatResult
	decodeData(t, w, &resp)

	if resp.Response != chatFallback {
		t.Errorf("send(provider down) response = %q, want fallback", resp.Response)
	}
	if resp.ConversationID != conversationID {
		t.Errorf("send(provider down) conversation_id = %s, want echoed %s", resp.ConversationID, conversationID)
	}
	if len(resp.Actions) != 0 {
		t.Errorf("send(provider down) actions = %d, want 0", len(resp.Actions))
	}
	// The raw provider error must not leak into the body.
	if strings.Contains(w.Body.String(), "upstream busy") {
		t.Errorf("send(provider down) leaks provider error: %s", w.Body.String())
	}
}

func TestChatSend_ProviderFailureMintsConversationID(t *testing.T) {
	h, _ := newChatTestHandler(t, testutil.ErrStep(&provider.Error{
		Provider: "groq",
		Kind:     provider.KindTransient,
		Err:      errors.New("boom"),
	}))

	w := httptest.NewRecorder()
	h.send(w, authedRequest(t, http.MethodPost, "/api/chat", map[string]string{
		"message": "hello",
	}, uuid.New()))

	if w.Code != http.StatusOK {
		t.Fatalf("send(provider down) status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp chatResult
	decodeData(t, w, &resp)
	if resp.ConversationID == uuid.Nil {
		t.Error("degraded response should still mint a conversation ID")
	}
}

func TestChatHealth_Available(t *testing.T) {
	h, _ := newChatTestHandler(t)

	w := httptest.NewRecorder()
	h.health(w, httptest.NewRequest(http.MethodGet, "/api/chat/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("health() status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	decodeData(t, w, &resp)

	if resp["status"] != "available" {
		t.Errorf("health() status = %v, want %q", resp["status"], "available")
	}
	if resp["provider"] != "scripted" {
		t.Errorf("health() provider = %v, want %q", resp["provider"], "scripted")
	}
	if resp["model"] != "scripted-model" {
		t.Errorf("health() model = %v, want %q", resp["model"], "scripted-model")
	}
}

func TestChatHealth_Unavailable(t *testing.T) {
	h := &chatHandler{logger: discardLogger()}

	w := httptest.NewRecorder()
	h.health(w, httptest.NewRequest(http.MethodGet, "/api/chat/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("health() status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	decodeData(t, w, &resp)

	if resp["status"] != "unavailable" {
		t.Errorf("health() status = %v, want %q", resp["status"], "unavailable")
	}
	if resp["provider"] != nil {
		t.Errorf("health() provider = %v, want null", resp["provider"])
	}
	if resp["model"] != nil {
		t.Errorf("health() model = %v, want null", resp["model"])
	}
}
