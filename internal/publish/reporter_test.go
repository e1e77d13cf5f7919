package publish_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leighmacdonald/slottrack/internal/publish"
	"github.com/leighmacdonald/slottrack/internal/tracker"
)

func TestHTTPReporterHeadersAndBody(t *testing.T) {
	var (
		gotKey      string
		gotServerID string
		gotSnapshot tracker.Snapshot
	)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, req *http.Request) {
		gotKey = req.Header.Get("X-API-Key")
		gotServerID = req.Header.Get("X-Server-ID")
		require.NoError(t, json.NewDecoder(req.Body).Decode(&gotSnapshot))
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reporter := publish.NewHTTPReporter(server.Client(), server.URL, "secret-key", "srv-1")
	err := reporter.Report(context.Background(), tracker.Snapshot{ServerID: "srv-1", MapName: "de_dust2"})

	require.NoError(t, err)
	require.Equal(t, "secret-key", gotKey)
	require.Equal(t, "srv-1", gotServerID)
	require.Equal(t, "de_dust2", gotSnapshot.MapName)
}

func TestHTTPReporterStatusMapping(t *testing.T) {
	status := http.StatusInternalServerError
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(status)
	}))
	defer server.Close()

	reporter := publish.NewHTTPReporter(server.Client(), server.URL, "", "srv-1")

	require.ErrorIs(t, reporter.Report(context.Background(), tracker.Snapshot{}), publish.ErrUnavailable)

	status = http.StatusUnauthorized
	require.ErrorIs(t, reporter.Report(context.Background(), tracker.Snapshot{}), publish.ErrRejected)

	status = http.StatusAccepted
	require.NoError(t, reporter.Report(context.Background(), tracker.Snapshot{}))
}

func TestHTTPReporterNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	reporter := publish.NewHTTPReporter(http.DefaultClient, server.URL, "", "srv-1")
	require.ErrorIs(t, reporter.Report(context.Background(), tracker.Snapshot{}), publish.ErrUnavailable)
}
