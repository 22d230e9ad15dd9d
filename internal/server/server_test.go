package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tmcgann/fabworks/internal/agent"
	"github.com/tmcgann/fabworks/internal/supervisor"
)

type stubAsker struct {
	resp *supervisor.Response
	err  error
	last string
}

func (s *stubAsker) Ask(_ context.Context, request string) (*supervisor.Response, error) {
	s.last = request
	return s.resp, s.err
}

func newTestServer(asker Asker) *httptest.Server {
	srv := New(Config{Supervisor: asker, Addr: ":0", Logger: zerolog.Nop()})
	return httptest.NewServer(srv.Handler())
}

func postAsk(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/ask", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /ask: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(&stubAsker{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAsk_Success(t *testing.T) {
	asker := &stubAsker{resp: &supervisor.Response{
		SessionID: "abc-123",
		Agent:     "workitem",
		Records: []agent.Record{
			{Kind: agent.KindAgentOutput, Content: "Done."},
		},
	}}
	ts := newTestServer(asker)
	defer ts.Close()

	resp := postAsk(t, ts.URL, `{"query":"close all tasks"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if asker.last != "close all tasks" {
		t.Errorf("supervisor received %q", asker.last)
	}

	var body struct {
		SessionID string         `json:"session_id"`
		Agent     string         `json:"agent"`
		Records   []agent.Record `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.SessionID != "abc-123" || body.Agent != "workitem" {
		t.Errorf("body = %+v", body)
	}
	if len(body.Records) != 1 || body.Records[0].Content != "Done." {
		t.Errorf("records = %+v", body.Records)
	}
}

func TestAsk_EmptyQuery(t *testing.T) {
	ts := newTestServer(&stubAsker{})
	defer ts.Close()

	resp := postAsk(t, ts.URL, `{"query":"   "}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAsk_BadJSON(t *testing.T) {
	ts := newTestServer(&stubAsker{})
	defer ts.Close()

	resp := postAsk(t, ts.URL, `{not json`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAsk_SupervisorError(t *testing.T) {
	ts := newTestServer(&stubAsker{err: errors.New("model unavailable")})
	defer ts.Close()

	resp := postAsk(t, ts.URL, `{"query":"close tasks"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error == "" {
		t.Error("error body should carry the failure")
	}
}
