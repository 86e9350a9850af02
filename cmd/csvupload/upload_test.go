package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/csvupload/internal/config"
	"github.com/nao1215/csvupload/internal/database"
	"github.com/nao1215/csvupload/internal/model"
	"github.com/nao1215/csvupload/internal/uploader"
)

// analysisServer is a stand-in for the analysis server.
type analysisServer struct {
	*httptest.Server
	mu       sync.Mutex
	uploaded map[string]string
}

func newAnalysisServer(t *testing.T, uploadStatus int) *analysisServer {
	t.Helper()

	s := &analysisServer{uploaded: make(map[string]string)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		f, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f) //nolint:errcheck // test helper

		s.mu.Lock()
		s.uploaded[header.Filename] = string(data)
		s.mu.Unlock()

		if uploadStatus != http.StatusOK {
			http.Error(w, "analysis failed", uploadStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"summary": {"rows": 3}, "histogram": "static/h.png", "heatmap": "static/m.png"}`) //nolint:errcheck // test helper
	})
	mux.HandleFunc("GET /static/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = io.WriteString(w, "png:"+r.URL.Path) //nolint:errcheck // test helper
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *analysisServer) file(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.uploaded[name]
	return content, ok
}

// uploadEnv holds the files one upload test works with.
type uploadEnv struct {
	dataDir    string
	configPath string
	csvPath    string
}

func newUploadEnv(t *testing.T, configContent string) uploadEnv {
	t.Helper()

	dir := t.TempDir()
	env := uploadEnv{
		dataDir:    filepath.Join(dir, "data"),
		configPath: filepath.Join(dir, "config.yaml"),
		csvPath:    filepath.Join(dir, "sales.csv"),
	}
	if err := os.WriteFile(env.configPath, []byte(configContent), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env.csvPath, []byte("region,amount\neast,10\nwest,20\nnorth,30\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return env
}

// runRoot executes the root command with args and returns stdout, stderr and the error.
func runRoot(t *testing.T, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func listHistory(t *testing.T, dataDir string) []*model.UploadRecord {
	t.Helper()

	db, err := database.Open(dataDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	defer db.Close()

	records, err := db.ListUploads(context.Background(), 0)
	if err != nil {
		t.Fatalf("failed to list history: %v", err)
	}
	return records
}

// TestNewUploadCmd tests the upload command creation.
func TestNewUploadCmd(t *testing.T) {
	t.Parallel()

	cmd := NewUploadCmd()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"server", "s", config.DefaultServerURL},
		{"proxy", "", ""},
		{"timeout", "t", "0s"},
		{"config", "c", ""},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"output", "o", ""},
		{"images", "i", ""},
		{"no-history", "", "false"},
		{"data-dir", "", ""},
	}

	for _, tt := range tests {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestUploadCmd_TextOutput(t *testing.T) {
	t.Parallel()

	srv := newAnalysisServer(t, http.StatusOK)
	env := newUploadEnv(t, "")

	stdout, stderr, err := runRoot(t, nil, "upload",
		"--config", env.configPath, "--data-dir", env.dataDir,
		"--server", srv.URL, env.csvPath)
	if err != nil {
		t.Fatalf("unexpected error: %v (stderr: %s)", err, stderr)
	}

	if content, ok := srv.file("sales.csv"); !ok || !strings.HasPrefix(content, "region,amount\n") {
		t.Errorf("server did not receive the CSV, got %q", content)
	}

	for _, want := range []string{
		"Summary:\n{\n  \"rows\": 3\n}\n",
		"Histogram: " + srv.URL + "/static/h.png\n",
		"Heatmap:   " + srv.URL + "/static/m.png\n",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected stdout to contain %q, got %q", want, stdout)
		}
	}
	if stderr != "" {
		t.Errorf("expected no alerts, got %q", stderr)
	}

	records := listHistory(t, env.dataDir)
	if len(records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(records))
	}
	r := records[0]
	if !r.Succeeded() || r.FileName != "sales.csv" || r.Server != srv.URL {
		t.Errorf("unexpected record %+v", r)
	}
	if r.Display.HistogramPath != "/static/h.png" || len(r.Digest) != 64 {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestUploadCmd_JSONOutputFromConfigFile(t *testing.T) {
	t.Parallel()

	srv := newAnalysisServer(t, http.StatusOK)
	env := newUploadEnv(t, "server: "+srv.URL+"\nformat: json\n")

	stdout, stderr, err := runRoot(t, nil, "upload",
		"--config", env.configPath, "--data-dir", env.dataDir, env.csvPath)
	if err != nil {
		t.Fatalf("unexpected error: %v (stderr: %s)", err, stderr)
	}

	var got model.Display
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	want := model.Display{
		Summary:       "{\n  \"rows\": 3\n}",
		HistogramPath: "/static/h.png",
		HeatmapPath:   "/static/m.png",
	}
	if got != want {
		t.Errorf("display = %+v, expected %+v", got, want)
	}
}

func TestUploadCmd_FlagOverridesConfigFormat(t *testing.T) {
	t.Parallel()

	srv := newAnalysisServer(t, http.StatusOK)
	env := newUploadEnv(t, "server: "+srv.URL+"\nformat: json\n")
	reportPath := filepath.Join(t.TempDir(), "reports", "result.md")

	stdout, stderr, err := runRoot(t, nil, "upload",
		"--config", env.configPath, "--data-dir", env.dataDir,
		"--markdown", "--output", reportPath, env.csvPath)
	if err != nil {
		t.Fatalf("unexpected error: %v (stderr: %s)", err, stderr)
	}
	if !strings.HasPrefix(stdout, "Summary:\n{\n  \"rows\": 3\n}\n") {
		t.Errorf("expected the text rendering on stdout, got %q", stdout)
	}
	if strings.Contains(stdout, "# CSV Analysis") {
		t.Errorf("expected the Markdown report only in the file, got %q", stdout)
	}

	report, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	if !strings.Contains(string(report), "# CSV Analysis") {
		t.Errorf("expected Markdown report, got:\n%s", report)
	}
	if !strings.Contains(string(report), "![Heatmap]("+srv.URL+"/static/m.png)") {
		t.Errorf("expected heatmap link, got:\n%s", report)
	}
}

func TestUploadCmd_Stdin(t *testing.T) {
	t.Parallel()

	srv := newAnalysisServer(t, http.StatusOK)
	env := newUploadEnv(t, "")

	_, stderr, err := runRoot(t, strings.NewReader("a,b\n1,2\n"), "upload",
		"--config", env.configPath, "--data-dir", env.dataDir,
		"--server", srv.URL, "-")
	if err != nil {
		t.Fatalf("unexpected error: %v (stderr: %s)", err, stderr)
	}
	if content, ok := srv.file("stdin.csv"); !ok || content != "a,b\n1,2\n" {
		t.Errorf("server received %q, expected stdin content", content)
	}
}

func TestUploadCmd_NoFile(t *testing.T) {
	t.Parallel()

	srv := newAnalysisServer(t, http.StatusOK)
	env := newUploadEnv(t, "")

	stdout, stderr, err := runRoot(t, nil, "upload",
		"--config", env.configPath, "--data-dir", env.dataDir, "--server", srv.URL)
	if !errors.Is(err, uploader.ErrNoFileSelected) {
		t.Fatalf("expected ErrNoFileSelected, got %v", err)
	}
	if stderr != "Please upload a CSV file first.\n" {
		t.Errorf("stderr = %q, expected the no-file alert only", stderr)
	}
	if stdout != "" {
		t.Errorf("expected no output, got %q", stdout)
	}
	if records := listHistory(t, env.dataDir); len(records) != 0 {
		t.Errorf("expected no history record, got %d", len(records))
	}
}

func TestUploadCmd_ServerError(t *testing.T) {
	t.Parallel()

	srv := newAnalysisServer(t, http.StatusInternalServerError)
	env := newUploadEnv(t, "")

	stdout, stderr, err := runRoot(t, nil, "upload",
		"--config", env.configPath, "--data-dir", env.dataDir,
		"--server", srv.URL, env.csvPath)
	if !errors.Is(err, uploader.ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if !strings.Contains(stderr, "Error occurred while uploading file.\n") {
		t.Errorf("expected failure alert, got %q", stderr)
	}
	if !strings.Contains(stderr, "upload failed") {
		t.Errorf("expected error log, got %q", stderr)
	}
	if stdout != "" {
		t.Errorf("expected sink to be untouched, got %q", stdout)
	}

	records := listHistory(t, env.dataDir)
	if len(records) != 1 || records[0].Succeeded() {
		t.Fatalf("expected one failed record, got %+v", records)
	}
	if records[0].StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d", records[0].StatusCode)
	}
	if !strings.Contains(records[0].Error, "500") {
		t.Errorf("Error = %q, expected status", records[0].Error)
	}
}

func TestUploadCmd_JSONLogs(t *testing.T) {
	t.Parallel()

	srv := newAnalysisServer(t, http.StatusInternalServerError)
	env := newUploadEnv(t, "")

	_, stderr, err := runRoot(t, nil, "upload",
		"--config", env.configPath, "--data-dir", env.dataDir,
		"--server", srv.URL, "--log-format", "json", env.csvPath)
	if !errors.Is(err, uploader.ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}

	var found bool
	for _, line := range strings.Split(stderr, "\n") {
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		if entry["msg"] == "upload failed" && entry["level"] == "ERROR" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a JSON error log line, got %q", stderr)
	}
	if !strings.Contains(stderr, "Error occurred while uploading file.\n") {
		t.Errorf("expected failure alert, got %q", stderr)
	}
}

func TestUploadCmd_NoHistory(t *testing.T) {
	t.Parallel()

	srv := newAnalysisServer(t, http.StatusOK)
	env := newUploadEnv(t, "")

	if _, stderr, err := runRoot(t, nil, "upload",
		"--config", env.configPath, "--data-dir", env.dataDir,
		"--server", srv.URL, "--no-history", env.csvPath); err != nil {
		t.Fatalf("unexpected error: %v (stderr: %s)", err, stderr)
	}
	if _, err := os.Stat(filepath.Join(env.dataDir, database.FileName)); !os.IsNotExist(err) {
		t.Errorf("expected no database to be created, stat error: %v", err)
	}
}

func TestUploadCmd_Images(t *testing.T) {
	t.Parallel()

	srv := newAnalysisServer(t, http.StatusOK)
	env := newUploadEnv(t, "")
	imageDir := filepath.Join(t.TempDir(), "charts")

	_, stderr, err := runRoot(t, nil, "upload",
		"--config", env.configPath, "--data-dir", env.dataDir,
		"--server", srv.URL, "--images", imageDir, env.csvPath)
	if err != nil {
		t.Fatalf("unexpected error: %v (stderr: %s)", err, stderr)
	}

	for name, want := range map[string]string{
		"h.png": "png:/static/h.png",
		"m.png": "png:/static/m.png",
	} {
		data, err := os.ReadFile(filepath.Join(imageDir, name))
		if err != nil {
			t.Errorf("expected %s to be downloaded: %v", name, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s = %q, expected %q", name, data, want)
		}
	}
	if !strings.Contains(stderr, "Saved histogram to ") || !strings.Contains(stderr, "Saved heatmap to ") {
		t.Errorf("expected save messages, got %q", stderr)
	}
}

func TestUploadCmd_ConfigErrors(t *testing.T) {
	t.Parallel()

	env := newUploadEnv(t, "")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "conflicting formats",
			args:    []string{"--config", env.configPath, "--json", "--markdown", env.csvPath},
			wantErr: config.ErrConflictingReportFormats,
		},
		{
			name:    "invalid server URL",
			args:    []string{"--config", env.configPath, "--server", "ftp://example.com", env.csvPath},
			wantErr: config.ErrInvalidServerURL,
		},
		{
			name:    "invalid proxy URL",
			args:    []string{"--config", env.configPath, "--proxy", "gopher://proxy:70", env.csvPath},
			wantErr: config.ErrInvalidProxyURL,
		},
		{
			name:    "negative timeout",
			args:    []string{"--config", env.configPath, "--timeout", "-1s", env.csvPath},
			wantErr: config.ErrInvalidTimeout,
		},
		{
			name:    "unknown log format",
			args:    []string{"--config", env.configPath, "--log-format", "logfmt", env.csvPath},
			wantErr: config.ErrUnknownLogFormat,
		},
		{
			name:    "missing explicit config file",
			args:    []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), env.csvPath},
			wantErr: config.ErrConfigNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"upload", "--data-dir", env.dataDir}, tt.args...)
			_, _, err := runRoot(t, nil, args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if alreadyAlerted(err) {
				t.Error("configuration errors must be printed by Execute")
			}
		})
	}
}

func TestNewUploadRecord(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		display := model.Display{Summary: "{}", HistogramPath: "/h.png", HeatmapPath: "/m.png"}
		record := newUploadRecord("http://127.0.0.1:5000", uploader.Outcome{
			Result: &uploader.Result{FileName: "a.csv", Size: 3, Digest: "d", StatusCode: 200, Display: display},
		})
		if !record.Succeeded() || record.Display != display || record.Error != "" {
			t.Errorf("unexpected record %+v", record)
		}
		if record.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()

		record := newUploadRecord("http://127.0.0.1:5000", uploader.Outcome{
			Result: &uploader.Result{FileName: "a.csv", StatusCode: 502},
			Err:    errors.New("upload failed: server returned 502 Bad Gateway"),
		})
		if record.Succeeded() || record.StatusCode != 502 {
			t.Errorf("unexpected record %+v", record)
		}
		if record.Error != "upload failed: server returned 502 Bad Gateway" {
			t.Errorf("Error = %q", record.Error)
		}
	})
}
