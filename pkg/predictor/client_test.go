package predictor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/supportchat/pkg/chat"
	"github.com/go-go-golems/supportchat/pkg/predictor"
)

func TestClient_PredictContract(t *testing.T) {
	var got predictor.Request
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/predict", r.URL.Path)
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"reply":"Hello!"}`))
	}))
	t.Cleanup(srv.Close)

	c := predictor.New(srv.URL + "/api/predict")
	history := []chat.Message{
		chat.UserMessage("hi"),
		chat.BotMessage("Hi there!"),
		chat.UserMessage("refund please"),
	}
	reply, err := c.Predict(context.Background(), "refund please", history)
	require.NoError(t, err)
	require.Equal(t, "Hello!", reply)

	require.Equal(t, "application/json", contentType)
	require.Equal(t, "refund please", got.Message)
	require.Equal(t, []predictor.HistoryEntry{
		{Role: "user", Message: "hi"},
		{Role: "bot", Message: "Hi there!"},
		{Role: "user", Message: "refund please"},
	}, got.History)
}

func TestClient_MissingReplyIsEmpty(t *testing.T) {
	cases := map[string]struct {
		body  string
		reply string
	}{
		"wrong field":    {`{"answer":"wrong field"}`, ""},
		"null reply":     {`{"reply":null}`, ""},
		"number reply":   {`{"reply":42}`, "42"},
		"object reply":   {`{"reply": {"text": "hi"}}`, `{"text":"hi"}`},
		"array body":     {`["x"]`, ""},
		"string body":    {`"hello"`, ""},
		"trailing space": {"{\"reply\":\"ok\"}\n", "ok"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)

			reply, err := predictor.New(srv.URL).Predict(context.Background(), "x", nil)
			require.NoError(t, err)
			require.Equal(t, tc.reply, reply)
		})
	}
}

func TestClient_WrongShapeReachesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":42}`))
	}))
	t.Cleanup(srv.Close)

	s := chat.NewSession(predictor.New(srv.URL))
	s.SetDraft("hi")
	ex, ok := s.Submit(context.Background())
	require.True(t, ok)
	ex.Run()
	require.Equal(t, []chat.Message{chat.UserMessage("hi"), chat.BotMessage("42")}, s.Messages())
}

func TestClient_FailuresAreUnreachable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>nope</html>"))
		},
		"empty body": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			t.Cleanup(srv.Close)

			_, err := predictor.New(srv.URL).Predict(context.Background(), "x", nil)
			require.Error(t, err)
			require.True(t, errors.Is(err, predictor.ErrUnreachable))
		})
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := predictor.New(url).Predict(context.Background(), "x", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, predictor.ErrUnreachable))
}

func TestClient_DrivesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"Hello!"}`))
	}))
	t.Cleanup(srv.Close)

	s := chat.NewSession(predictor.New(srv.URL))
	s.SetDraft("hi")
	ex, ok := s.Submit(context.Background())
	require.True(t, ok)
	ex.Run()
	require.Equal(t, []chat.Message{chat.UserMessage("hi"), chat.BotMessage("Hello!")}, s.Messages())
	require.False(t, s.Pending())

	srv.Close()
	s.SetDraft("again")
	ex, ok = s.Submit(context.Background())
	require.True(t, ok)
	ex.Run()
	msgs := s.Messages()
	require.Equal(t, chat.BotMessage(chat.UnreachableReply), msgs[len(msgs)-1])
	require.False(t, s.Pending())
}

func TestNew_DefaultEndpoint(t *testing.T) {
	require.Equal(t, predictor.DefaultEndpoint, predictor.New("").Endpoint())
}
