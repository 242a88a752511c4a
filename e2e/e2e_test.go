//go:build e2e

// Package e2e provides end-to-end browser tests for hoover.
//
// A local run page (testdata/run.html) mounts only a sliding window of log lines
// per step, the way a virtualized log view does. The tests check that polling such
// a page captures every line exactly once and in order.
//
// Test organization:
// - e2e_test.go: TestMain, shared helpers, constants, served binary tests
// - source_test.go: in-process browser source and fixture tests
package e2e

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	baseURL    = "http://localhost:18090"
	testDBPath = "/tmp/hoover-e2e.db"
	binPath    = "/tmp/hoover-e2e"
)

var (
	pw         *playwright.Playwright
	serverCmd  *exec.Cmd
	fixtureURL string
)

func TestMain(m *testing.M) {
	_ = os.Remove(testDBPath)

	fixture := httptest.NewServer(http.FileServer(http.Dir("testdata")))
	fixtureURL = fixture.URL + "/run.html"

	ctx := context.Background()
	build := exec.CommandContext(ctx, "go", "build", "-o", binPath, "./app")
	build.Dir = ".."
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		fmt.Printf("failed to build: %v\n", err)
		os.Exit(1)
	}

	// install playwright browsers before the server starts using them
	if err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
	}); err != nil {
		fmt.Printf("failed to install playwright: %v\n", err)
		os.Exit(1)
	}

	serverCmd = exec.CommandContext(ctx, binPath, "serve",
		"--dbg",
		"--web.address=:18090",
		"--web.rate=0",
		"--archive.db="+testDBPath,
		"--browser.url="+fixtureURL,
		"--browser.headless",
		"--browser.poll=100ms",
	)
	serverCmd.Stdout = os.Stdout
	serverCmd.Stderr = os.Stderr
	if err := serverCmd.Start(); err != nil {
		fmt.Printf("failed to start server: %v\n", err)
		os.Exit(1)
	}

	if err := waitForServer(baseURL+"/ping", 30*time.Second); err != nil {
		fmt.Printf("server not ready: %v\n", err)
		_ = serverCmd.Process.Kill()
		os.Exit(1)
	}

	var err error
	pw, err = playwright.Run()
	if err != nil {
		fmt.Printf("failed to start playwright: %v\n", err)
		_ = serverCmd.Process.Kill()
		os.Exit(1)
	}

	code := m.Run()

	_ = pw.Stop()
	_ = serverCmd.Process.Kill()
	fixture.Close()
	_ = os.Remove(testDBPath)

	os.Exit(code)
}

func waitForServer(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("server not ready after %v", timeout)
		default:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody) // #nosec G107 - test url
			if err != nil {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			resp, err := client.Do(req)
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return nil
				}
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func newPage(t *testing.T) playwright.Page {
	t.Helper()
	headless := os.Getenv("E2E_HEADLESS") != "false"
	brow, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = brow.Close() })

	ctx, err := brow.NewContext()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })

	page, err := ctx.NewPage()
	require.NoError(t, err)
	return page
}

// expectedLog is the full text of a fixture step
func expectedLog(name string, total int, index, timestamps bool) string {
	var sb strings.Builder
	for i := 1; i <= total; i++ {
		if index {
			fmt.Fprintf(&sb, "%d\t", i)
		}
		if timestamps {
			fmt.Fprintf(&sb, "[2025-01-01T10:%02d:%02dZ] ", (i/60)%60, i%60)
		}
		fmt.Fprintf(&sb, "%s line %d\n", name, i)
	}
	return sb.String()
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// --- served binary tests ---

func TestServe_CapturesVirtualizedLog(t *testing.T) {
	want := expectedLog("build", 200, false, false)
	require.Eventually(t, func() bool {
		code, body := get(t, baseURL+"/api/v1/streams/step-build/text")
		return code == http.StatusOK && body == want
	}, 60*time.Second, 500*time.Millisecond, "every line of the failed step is captured")

	code, body := get(t, baseURL+"/api/v1/streams/step-build/text?index=true&timestamp=true")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, expectedLog("build", 200, true, true), body)
}

func TestServe_OnlyFailedSteps(t *testing.T) {
	require.Eventually(t, func() bool {
		code, body := get(t, baseURL+"/api/v1/streams")
		return code == http.StatusOK && strings.Contains(body, `"/o/r/logs/3"`)
	}, 30*time.Second, 500*time.Millisecond, "step without id is keyed by its log url")

	code, _ := get(t, baseURL+"/api/v1/streams/ext-lint")
	assert.Equal(t, http.StatusNotFound, code, "successful step is not hoovered")
}

func TestServe_Snapshot(t *testing.T) {
	require.Eventually(t, func() bool {
		code, _ := get(t, baseURL+"/api/v1/streams/step-build")
		return code == http.StatusOK
	}, 30*time.Second, 200*time.Millisecond)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost,
		baseURL+"/api/v1/streams/step-build/snapshots?index=true", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	code, body := get(t, baseURL+"/api/v1/streams/step-build/snapshots")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"stream":"step-build"`)
}
