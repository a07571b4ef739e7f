package e2e_test

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	binaryPath     string
	binaryBuildErr error
	binaryOnce     sync.Once
	sharedTempDir  string
)

func TestMain(m *testing.M) {
	var err error
	sharedTempDir, err = os.MkdirTemp("", "mdedge-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if testCleanup != nil {
		testCleanup()
	}
	_ = os.RemoveAll(sharedTempDir)

	os.Exit(code)
}

// ServerConfig holds configuration for starting the mdedge server.
type ServerConfig struct {
	Port        int
	Mode        string // store, static, spa
	DBType      string // sqlite, postgres
	DBDSN       string
	StoragePath string
}

// buildBinary compiles the mdedge binary once per test run.
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryOnce.Do(func() {
		binaryPath = filepath.Join(sharedTempDir, "mdedge")

		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/mdedge")
		cmd.Dir = getProjectRoot(t)
		output, err := cmd.CombinedOutput()
		if err != nil {
			binaryBuildErr = fmt.Errorf("build binary: %w\nOutput: %s", err, output)
			return
		}
	})

	if binaryBuildErr != nil {
		t.Fatalf("failed to build binary: %v", binaryBuildErr)
	}

	return binaryPath
}

func getProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// createConfigFile writes a config file for cfg and returns its path.
func createConfigFile(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	content := fmt.Sprintf(`server:
  port: %d
  mode: %s

database:
  type: %s
  dsn: "%s"

storage:
  backend: filesystem
  path: "%s"
  bucket: site

pipeline:
  workers: 2
  timeout: 10s

log:
  level: error
`, cfg.Port, cfg.Mode, cfg.DBType, cfg.DBDSN, cfg.StoragePath)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err, "write config file")

	return configPath
}

// runCommand runs a one-shot mdedge subcommand against cfg and returns its
// combined output.
func runCommand(t *testing.T, cfg ServerConfig, args ...string) string {
	t.Helper()

	binary := buildBinary(t)
	args = append(args, "--config", createConfigFile(t, cfg))

	output, err := exec.Command(binary, args...).CombinedOutput()
	require.NoError(t, err, "mdedge %v: %s", args, output)
	return string(output)
}

// startServer starts "mdedge serve" and returns the base URL. The server
// is stopped when the test ends.
func startServer(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	binary := buildBinary(t)
	cmd := exec.Command(binary, "serve", "--config", createConfigFile(t, cfg))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	require.NoError(t, cmd.Start(), "start server")

	t.Cleanup(func() {
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
			_ = cmd.Wait()
		}
	})

	baseURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(t, baseURL, 10*time.Second)

	return baseURL
}

// waitForServer polls the server until it responds or times out.
func waitForServer(t *testing.T, baseURL string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/")
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server failed to start within %v", timeout)
}

// getMarkdown requests uri with a Markdown Accept header until it is served,
// since conversion runs in the background after an upload.
func getMarkdown(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		require.NoError(t, err)
		req.Header.Set("Accept", "text/markdown")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.NoError(t, err)

		if resp.StatusCode != http.StatusNotFound || time.Now().After(deadline) {
			return resp, string(body)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// getOpenPort finds an available TCP port.
func getOpenPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err, "find open port")

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close(), "close port")

	return port
}

func sqliteConfig(t *testing.T, mode string) ServerConfig {
	t.Helper()
	return ServerConfig{
		Port:        getOpenPort(t),
		Mode:        mode,
		DBType:      "sqlite",
		DBDSN:       filepath.Join(t.TempDir(), "test.db"),
		StoragePath: t.TempDir(),
	}
}
