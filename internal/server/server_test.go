package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/placechat/placechat/internal/chat"
	"github.com/placechat/placechat/internal/search"
)

type stubSearcher struct {
	result *search.Result
	err    error
	last   search.Query
}

func (s *stubSearcher) Run(_ context.Context, q search.Query) (*search.Result, error) {
	s.last = q
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubChatter struct {
	reply       *chat.Reply
	err         error
	lastSession string
	lastMessage string
	lastAutoRun bool
}

func (s *stubChatter) Converse(_ context.Context, sessionID, message string, autoRun bool) (*chat.Reply, error) {
	s.lastSession = sessionID
	s.lastMessage = message
	s.lastAutoRun = autoRun
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

func newTestServer(searcher Searcher, chatter Chatter) *Server {
	return New(Options{
		Addr:           ":0",
		Searcher:       searcher,
		Chatter:        chatter,
		AutoRunDefault: true,
	})
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func TestSearchRoutes(t *testing.T) {
	okResult := &search.Result{
		Area:       "Quận 1",
		TotalCount: 1,
		Places: []search.Place{
			{PlaceID: "p1", Name: "Cafe Sáng", Address: "1 Lê Lợi, Quận 1, Việt Nam"},
		},
	}

	t.Run("GET with query parameters", func(t *testing.T) {
		searcher := &stubSearcher{result: okResult}
		s := newTestServer(searcher, &stubChatter{})

		w := doRequest(t, s, http.MethodGet, "/api/search?area=Qu%E1%BA%ADn+1&keyword=cafe", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body)
		}
		if searcher.last.Area != "Quận 1" || searcher.last.Keyword != "cafe" {
			t.Errorf("query = %+v", searcher.last)
		}

		var got search.Result
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if got.TotalCount != 1 || got.Places[0].Name != "Cafe Sáng" {
			t.Errorf("body = %s", w.Body)
		}
	})

	t.Run("POST with JSON body", func(t *testing.T) {
		searcher := &stubSearcher{result: okResult}
		s := newTestServer(searcher, &stubChatter{})

		w := doRequest(t, s, http.MethodPost, "/api/search", `{"area":"Đà Lạt","keyword":"khách sạn"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if searcher.last.Area != "Đà Lạt" || searcher.last.Keyword != "khách sạn" {
			t.Errorf("query = %+v", searcher.last)
		}
	})

	t.Run("null center is serialized explicitly", func(t *testing.T) {
		searcher := &stubSearcher{result: &search.Result{Area: "Atlantis", Places: []search.Place{}}}
		s := newTestServer(searcher, &stubChatter{})

		w := doRequest(t, s, http.MethodGet, "/api/search?area=Atlantis", "")
		if !strings.Contains(w.Body.String(), `"centerLocation":null`) {
			t.Errorf("body = %s", w.Body)
		}
	})

	t.Run("blank area is 400", func(t *testing.T) {
		s := newTestServer(&stubSearcher{}, &stubChatter{})

		for _, target := range []string{"/api/search?area=", "/api/search?area=%20%20"} {
			w := doRequest(t, s, http.MethodGet, target, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: status = %d", target, w.Code)
			}
			if !strings.Contains(w.Body.String(), "error") {
				t.Errorf("%s: body = %s", target, w.Body)
			}
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		s := newTestServer(&stubSearcher{}, &stubChatter{})
		w := doRequest(t, s, http.MethodPost, "/api/search", "{not json")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestChatRoute(t *testing.T) {
	reply := &chat.Reply{
		SessionID:        "s_1",
		AssistantMessage: "Chào bạn!",
		ToolCalls:        []chat.ToolCallStatus{},
	}

	t.Run("forwards session, message, and default autoRun", func(t *testing.T) {
		chatter := &stubChatter{reply: reply}
		s := newTestServer(&stubSearcher{}, chatter)

		w := doRequest(t, s, http.MethodPost, "/api/chat", `{"sessionId":"s_1","message":"xin chào"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body)
		}
		if chatter.lastSession != "s_1" || chatter.lastMessage != "xin chào" {
			t.Errorf("forwarded (%q, %q)", chatter.lastSession, chatter.lastMessage)
		}
		if !chatter.lastAutoRun {
			t.Error("autoRun should default from server options")
		}

		var got chat.Reply
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if got.AssistantMessage != "Chào bạn!" {
			t.Errorf("body = %s", w.Body)
		}
	})

	t.Run("explicit autoRun override", func(t *testing.T) {
		chatter := &stubChatter{reply: reply}
		s := newTestServer(&stubSearcher{}, chatter)

		doRequest(t, s, http.MethodPost, "/api/chat", `{"message":"hi","autoRunApi":false}`)
		if chatter.lastAutoRun {
			t.Error("autoRunApi=false in the request must win over the default")
		}
	})

	t.Run("blank message is 400", func(t *testing.T) {
		chatter := &stubChatter{err: chat.ErrBlankMessage}
		s := newTestServer(&stubSearcher{}, chatter)

		w := doRequest(t, s, http.MethodPost, "/api/chat", `{"message":"   "}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestCorrelationHeader(t *testing.T) {
	s := newTestServer(&stubSearcher{}, &stubChatter{})

	t.Run("echoes the caller's id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.Header.Set("X-Correlation-Id", "corr-123")
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, r)

		if got := w.Header().Get("X-Correlation-Id"); got != "corr-123" {
			t.Errorf("header = %q", got)
		}
	})

	t.Run("generates one when absent", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/healthz", "")
		if w.Header().Get("X-Correlation-Id") == "" {
			t.Error("expected a generated correlation id")
		}
	})
}
