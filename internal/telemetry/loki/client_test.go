package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func newLokiServer(t *testing.T, status int) (*httptest.Server, <-chan PushRequest) {
	t.Helper()
	got := make(chan PushRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body PushRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		got <- body
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestPushReportJSON_LabelsAndTimestamp(t *testing.T) {
	srv, got := newLokiServer(t, http.StatusNoContent)
	raw := []byte(`{"run_id":"3f2a9b","entity":"team","project":"mnist/v2","record":{"framework":"torch"},"created_at":"2021-05-04T12:30:00Z"}`)

	if err := PushReportJSON(context.Background(), srv.URL+"/", raw); err != nil {
		t.Fatalf("PushReportJSON: %v", err)
	}
	body := <-got
	if len(body.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(body.Streams))
	}
	stream := body.Streams[0]
	want := map[string]string{"job": Job, "entity": "team", "project": "mnist_v2", "framework": "torch"}
	for k, v := range want {
		if stream.Stream[k] != v {
			t.Errorf("label %s = %q, want %q", k, stream.Stream[k], v)
		}
	}
	if _, ok := stream.Stream["run_id"]; ok {
		t.Error("run_id must not be a label")
	}
	ts := time.Date(2021, 5, 4, 12, 30, 0, 0, time.UTC).UnixNano()
	if stream.Values[0][0] != strconv.FormatInt(ts, 10) {
		t.Errorf("timestamp = %s, want %d", stream.Values[0][0], ts)
	}
	if stream.Values[0][1] != string(raw) {
		t.Errorf("line = %s", stream.Values[0][1])
	}
}

func TestPushReportJSON_UnparseableLinePushedRaw(t *testing.T) {
	srv, got := newLokiServer(t, http.StatusNoContent)
	if err := PushReportJSON(context.Background(), srv.URL, []byte("not json")); err != nil {
		t.Fatalf("PushReportJSON: %v", err)
	}
	body := <-got
	if len(body.Streams[0].Stream) != 1 || body.Streams[0].Stream["job"] != Job {
		t.Errorf("labels = %v, want only job", body.Streams[0].Stream)
	}
}

func TestPushEvent_Errors(t *testing.T) {
	if err := PushEvent(context.Background(), "", time.Now(), "x", nil); err == nil {
		t.Error("empty base URL should fail")
	}
	srv, _ := newLokiServer(t, http.StatusBadRequest)
	if err := PushEvent(context.Background(), srv.URL, time.Now(), "x", nil); err == nil {
		t.Error("non-2xx response should fail")
	}
}
