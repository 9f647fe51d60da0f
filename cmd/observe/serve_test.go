package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/observe/internal/config"
	"github.com/vango-dev/observe/pkg/snapshot"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record written at warn level")
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &record); err != nil {
		t.Fatalf("not JSON: %q", out)
	}
	if record["msg"] != "shown" || record["k"] != "v" {
		t.Errorf("record = %v", record)
	}

	buf.Reset()
	newLogger(config.LogConfig{Level: "bogus", Format: "text"}, &buf).Info("text record")
	if !strings.Contains(buf.String(), "msg=\"text record\"") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestNewMonitor(t *testing.T) {
	cfg := config.New()
	logger := newLogger(cfg.Log, &bytes.Buffer{})

	mon, handler := newMonitor(cfg, logger)
	if mon == nil {
		t.Fatal("monitor is nil")
	}
	if handler != nil {
		t.Error("metrics handler without metrics enabled")
	}

	cfg.Metrics.Enabled = true
	cfg.Tracing.Enabled = true
	_, handler = newMonitor(cfg, logger)
	if handler == nil {
		t.Fatal("metrics handler is nil")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}
}

func TestNewSnapshotStore(t *testing.T) {
	store, err := newSnapshotStore(config.SnapshotConfig{})
	if err != nil || store != nil {
		t.Errorf("disabled store = %v, %v", store, err)
	}

	dir := t.TempDir()
	store, err = newSnapshotStore(config.SnapshotConfig{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if ds, ok := store.(*snapshot.DiskStore); !ok || ds.Dir() != dir {
		t.Errorf("dir store = %#v", store)
	}

	store, err = newSnapshotStore(config.SnapshotConfig{Bucket: "b", Region: "us-east-1", Endpoint: "http://localhost:9000"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*snapshot.S3Store); !ok {
		t.Errorf("bucket store = %T", store)
	}
}

func TestServerConfig(t *testing.T) {
	cfg := config.New()
	cfg.Server.Addr = "0.0.0.0:9000"
	cfg.Server.ReadTimeout = "3s"
	cfg.Server.WriteTimeout = "bad"
	cfg.Server.WritesPerSecond = 5
	cfg.Server.WriteBurst = 2
	cfg.Metrics.Path = "/m"

	sc := serverConfig(cfg, http.NotFoundHandler(), nil)
	if sc.Address != "0.0.0.0:9000" || sc.ReadTimeout != 3*time.Second {
		t.Errorf("address/read timeout = %q/%v", sc.Address, sc.ReadTimeout)
	}
	if sc.WriteTimeout != 10*time.Second {
		t.Errorf("malformed write timeout should fall back, got %v", sc.WriteTimeout)
	}
	if sc.WritesPerSecond != 5 || sc.WriteBurst != 2 || sc.MetricsPath != "/m" || sc.MetricsHandler == nil {
		t.Errorf("server config = %+v", sc)
	}
}

func TestRunServeSnapshots(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Snapshot.Dir = dir
	cfg.Snapshot.Restore = true
	cfg.Metrics.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	prior := `{"version": 1, "values": {"size": 30, "title": "Sans"}}`
	if err := os.WriteFile(filepath.Join(dir, cfg.Snapshot.Key), []byte(prior), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	var logs bytes.Buffer
	if err := runServe(ctx, cfg, &logs); err != nil {
		t.Fatalf("runServe: %v\n%s", err, logs.String())
	}

	data, err := os.ReadFile(filepath.Join(dir, cfg.Snapshot.Key))
	if err != nil {
		t.Fatalf("snapshot not saved: %v\n%s", err, logs.String())
	}
	var doc snapshot.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if string(doc.Values["size"]) != "30" || string(doc.Values["title"]) != `"Sans"` {
		t.Errorf("saved values = %s", data)
	}
	if string(doc.Values["font"]) != `"<mixed>"` {
		t.Errorf("saved font = %s", doc.Values["font"])
	}
	if !strings.Contains(logs.String(), "snapshot restored") {
		t.Errorf("logs missing restore:\n%s", logs.String())
	}
}
