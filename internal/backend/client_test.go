package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gridbot/internal/domain"
)

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func newTestClient(url string) *Client {
	return New(Config{
		BaseURL:        url,
		ConnectTimeout: time.Second,
		RequestTimeout: 2 * time.Second,
	})
}

func TestGameByThread_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/game/discord" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("channelId"); got != "thread-1" {
			t.Errorf("expected channelId=thread-1, got %q", got)
		}
		w.Write([]byte(`{"game_id":"g1","game_status":"IN_PROGRESS","waiting_on":"home"}`))
	}))
	defer srv.Close()

	game, err := newTestClient(srv.URL).GameByThread(context.Background(), "thread-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if game.GameID != "g1" || game.WaitingOn != "home" {
		t.Fatalf("unexpected game: %+v", game)
	}
}

func TestDo_ErrorFieldIsValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"not your turn"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SubmitDefense(context.Background(), "g1", 42, false)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Message != "not your turn" {
		t.Fatalf("expected backend message verbatim, got %q", vErr.Message)
	}
}

func TestDo_ErrorFieldOn200IsStillValidation(t *testing.T) {
	// Some backend endpoints report failures in a 200 body. The presence of
	// the "error" field alone classifies the response.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"game not found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GameByThread(context.Background(), "thread-9")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDo_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GameByThread(context.Background(), "t")
	var tErr *TransientError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransientError, got %v", err)
	}
	if tErr.Status != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", tErr.Status)
	}
}

func TestDo_ConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening

	_, err := newTestClient(srv.URL).GameByThread(context.Background(), "t")
	var tErr *TransientError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransientError for refused connection, got %v", err)
	}
}

func TestSubmitOffense_Query(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{
			"gameId":          q.Get("gameId"),
			"offensiveNumber": q.Get("offensiveNumber"),
			"playCall":        q.Get("playCall"),
			"runoffType":      q.Get("runoffType"),
			"timeoutCalled":   q.Get("timeoutCalled"),
		}
		w.Write([]byte(`{"play_id":"p1","game_id":"g1","result":"GAIN"}`))
	}))
	defer srv.Close()

	play, err := newTestClient(srv.URL).SubmitOffense(context.Background(), "g1", 777, domain.PlayRun, domain.RunoffChew, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if play.PlayID != "p1" {
		t.Fatalf("unexpected play: %+v", play)
	}
	want := map[string]string{
		"gameId":          "g1",
		"offensiveNumber": "777",
		"playCall":        "RUN",
		"runoffType":      "CHEW",
		"timeoutCalled":   "true",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("query %s: expected %q, got %q", k, v, got[k])
		}
	}
}

func TestLogMessage_PostsJSON(t *testing.T) {
	var gotPath, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var rec MessageLog
		if err := decodeJSON(r, &rec); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotType = rec.MessageType
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).LogMessage(context.Background(), MessageLog{
		MessageType:     "DEFENSE_NUMBER",
		GameID:          "g1",
		MessageID:       "m1",
		MessageLocation: "thread-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/request_message_log" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotType != "DEFENSE_NUMBER" {
		t.Fatalf("unexpected message_type %q", gotType)
	}
}
