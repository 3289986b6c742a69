package collector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/pulseagent"
	"github.com/jpalmerr/pulseagent/internal/store"
	"github.com/jpalmerr/pulseagent/sender/httpsender"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIngest_CheckIn(t *testing.T) {
	st := store.NewMemoryStore()
	srv := NewServer(st, 0, testLogger())
	h := srv.Handler()

	rec := post(t, h, httpsender.CheckInPath, `{"host":"web01","appId":"billing","version":"1.2.0"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	checkIns := st.CheckIns()
	require.Len(t, checkIns, 1)
	assert.Equal(t, "web01", checkIns[0].Host)
	assert.Equal(t, "billing", checkIns[0].AppID)
	assert.Equal(t, "APP_CHECK_IN", checkIns[0].MessageType)
	assert.Equal(t, []string{"host", "appId", "version"}, checkIns[0].Document.Keys())
}

func TestIngest_AllPaths(t *testing.T) {
	st := store.NewMemoryStore()
	h := NewServer(st, 0, testLogger()).Handler()

	paths := map[string]string{
		httpsender.CheckInPath:       "APP_CHECK_IN",
		httpsender.AppEventPath:      "APP_EVENT",
		httpsender.ThreadDumpPath:    "THREAD_DUMP",
		httpsender.AppConfigDumpPath: "APP_CONFIG_DUMP",
	}
	for path := range paths {
		rec := post(t, h, path, `{"host":"web01"}`)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	counts := st.Counts()
	for _, mt := range paths {
		assert.Equal(t, 1, counts[mt], mt)
	}
}

func TestIngest_Rejects(t *testing.T) {
	st := store.NewMemoryStore()
	h := NewServer(st, 0, testLogger()).Handler()

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{name: "get", method: http.MethodGet, want: http.StatusMethodNotAllowed},
		{name: "array body", method: http.MethodPost, body: `[1,2]`, want: http.StatusBadRequest},
		{name: "invalid json", method: http.MethodPost, body: `{"host":`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, httpsender.CheckInPath, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	assert.Empty(t, st.Counts())
}

func TestHandleStatus(t *testing.T) {
	st := store.NewMemoryStore()
	h := NewServer(st, 0, testLogger()).Handler()

	post(t, h, httpsender.CheckInPath, `{"host":"web02","appId":"billing"}`)
	post(t, h, httpsender.CheckInPath, `{"host":"web01","appId":"billing"}`)
	post(t, h, httpsender.AppEventPath, `{"host":"web01","eventType":"STARTUP_COMPLETE"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []store.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "web01", got[0].Host)
	assert.Equal(t, "web02", got[1].Host)
	assert.Equal(t, "billing", got[0].Document.String("appId"))
}

func TestHandleStatus_MethodNotAllowed(t *testing.T) {
	h := NewServer(store.NewMemoryStore(), 0, testLogger()).Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func parseSSEEvents(body string) []store.Record {
	var records []store.Record
	for _, line := range strings.Split(body, "\n") {
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var rec store.Record
			if err := json.Unmarshal([]byte(data), &rec); err == nil {
				records = append(records, rec)
			}
		}
	}
	return records
}

func TestHandleSSE_ReplaysCheckIns(t *testing.T) {
	st := store.NewMemoryStore()
	srv := NewServer(st, 0, testLogger())
	post(t, srv.Handler(), httpsender.CheckInPath, `{"host":"web01","appId":"billing"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.handleSSE(rec, req)

	events := parseSSEEvents(rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, "web01", events[0].Host)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestHandleSSE_ClientDisconnect(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// simulate client disconnect
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not exit after client disconnect")
	}
}

// TestServer_EndToEnd sends documents from an agent through the HTTP sender
// to a running collector and reads them back over SSE.
func TestServer_EndToEnd(t *testing.T) {
	st := store.NewMemoryStore()
	srv := NewServer(st, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, srv.Start(ctx))

	port := srv.Addr().(*net.TCPAddr).Port
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	// open an SSE stream before anything is sent
	var streamed atomic.Int32
	sseReady := make(chan struct{})
	var sseOnce sync.Once
	go func() {
		resp, err := http.Get(baseURL + "/api/sse")
		if err != nil {
			return
		}
		defer func() { _ = resp.Body.Close() }()
		sseOnce.Do(func() { close(sseReady) })

		r := bufio.NewReader(resp.Body)
		for {
			line, err := r.ReadString('\n')
			if strings.HasPrefix(line, "data: ") {
				streamed.Add(1)
			}
			if err != nil {
				return
			}
		}
	}()
	select {
	case <-sseReady:
	case <-time.After(2 * time.Second):
		t.Fatal("SSE stream did not open")
	}
	// let the handler subscribe
	time.Sleep(50 * time.Millisecond)

	sender, err := httpsender.New(baseURL)
	require.NoError(t, err)

	agent, err := pulseagent.New(
		pulseagent.WithSender(sender),
		pulseagent.WithLogger(testLogger()),
		pulseagent.WithAppMetadataProvider(&pulseagent.StaticMetadata{App: "billing", Ver: "1.2.0"}),
	)
	require.NoError(t, err)
	defer func() { _ = agent.Close() }()

	agent.ReportCheckIn(ctx)
	require.NoError(t, agent.ReportThreadDump(ctx))
	require.NoError(t, agent.ReportAppConfigDump(ctx, []pulseagent.AppConfigEntry{
		{Key: "db_password", Value: "hunter2"},
	}, ""))

	assert.Equal(t, int64(0), agent.FailureCount())

	checkIns := st.CheckIns()
	require.Len(t, checkIns, 1)
	assert.Equal(t, "billing", checkIns[0].AppID)
	assert.Equal(t, "1.2.0", checkIns[0].Document.String("version"))

	counts := st.Counts()
	assert.Equal(t, 1, counts["THREAD_DUMP"])
	assert.Equal(t, 1, counts["APP_CONFIG_DUMP"])

	assert.Eventually(t, func() bool { return streamed.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	// occupy a port
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := NewServer(store.NewMemoryStore(), port, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to bind")
}

func TestStart_InvalidPort_ReturnsError(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), -1, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Error(t, srv.Start(ctx))
	assert.Nil(t, srv.Addr())
}
