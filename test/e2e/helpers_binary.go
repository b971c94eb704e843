//go:build e2e

package e2e

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

const (
	e2eAPIKey    = "e2e-test-api-key"
	e2eWorkspace = "6f1c2d4e-8a9b-4c3d-9e2f-1a2b3c4d5e6f"
	e2eUser      = "9b8a7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

// pulseEnv is one isolated data directory shared by the commands of a test.
type pulseEnv struct {
	dataDir string
	dbPath  string
	port    int
	logFile string
}

func newPulseEnv(t *testing.T) *pulseEnv {
	t.Helper()
	requirePulse(t)
	dataDir := t.TempDir()
	return &pulseEnv{
		dataDir: dataDir,
		dbPath:  filepath.Join(dataDir, "pulse.db"),
		port:    freePort(t),
		logFile: filepath.Join(dataDir, "pulse.log"),
	}
}

// environ configures pulse entirely through environment variables.
func (e *pulseEnv) environ() []string {
	return append(os.Environ(),
		"PULSE_CONFIG_PATH="+filepath.Join(e.dataDir, "nonexistent.yaml"),
		"PULSE_DB_DRIVER=sqlite",
		"PULSE_DB_PATH="+e.dbPath,
		fmt.Sprintf("PULSE_PORT=%d", e.port),
		"PULSE_API_KEY="+e2eAPIKey,
		"PULSE_URL="+e.baseURL(),
		"PULSE_WORKSPACE_ID="+e2eWorkspace,
		"PULSE_USER_ID="+e2eUser,
	)
}

func (e *pulseEnv) baseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", e.port)
}

// run executes a one-shot pulse command and returns its stdout.
func (e *pulseEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(pulseBin, args...)
	cmd.Env = e.environ()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("pulse %v: %v\nstderr: %s", args, err, stderr.String())
	}
	return stdout.String()
}

// pulseServer manages a running `pulse serve` process.
type pulseServer struct {
	cmd  *exec.Cmd
	done chan error
}

// serve launches the server and waits for it to become healthy.
func (e *pulseEnv) serve(t *testing.T) *pulseServer {
	t.Helper()

	lf, err := os.Create(e.logFile)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}

	cmd := exec.Command(pulseBin, "serve")
	cmd.Env = e.environ()
	cmd.Stdout = lf
	cmd.Stderr = lf
	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start pulse: %v", err)
	}

	s := &pulseServer{cmd: cmd, done: make(chan error, 1)}
	go func() { s.done <- cmd.Wait() }()

	t.Cleanup(func() {
		s.stop(5 * time.Second)
		lf.Close()
	})

	if err := waitHealthy(e.baseURL(), 10*time.Second); err != nil {
		t.Fatalf("pulse not healthy: %v\n%s", err, readFile(e.logFile))
	}
	return s
}

// stop interrupts the server and reports whether it exited within timeout.
func (s *pulseServer) stop(timeout time.Duration) bool {
	if s.cmd.Process == nil {
		return true
	}
	if runtime.GOOS == "windows" {
		_ = s.cmd.Process.Kill()
	} else {
		_ = s.cmd.Process.Signal(os.Interrupt)
	}
	select {
	case <-s.done:
		return true
	case <-time.After(timeout):
		_ = s.cmd.Process.Kill()
		return false
	}
}

func waitHealthy(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := baseURL + "/api/v1/health"

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("not healthy after %s", timeout)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func readFile(path string) string {
	data, _ := os.ReadFile(path)
	return string(data)
}

// repoFile resolves a path relative to the repository root.
func repoFile(rel string) string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", rel)
}
