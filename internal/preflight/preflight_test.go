package preflight

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tracuu/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace_MeetsFloor(t *testing.T) {
	result := CheckFreeSpace(t.TempDir(), 1)
	if !result.Passed {
		t.Fatalf("expected pass for 1-byte floor, got: %s", result.Detail)
	}
}

func TestCheckFreeSpace_BelowFloor(t *testing.T) {
	result := CheckFreeSpace(t.TempDir(), math.MaxInt64)
	if result.Passed {
		t.Fatal("expected failure for unsatisfiable floor")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckFreeSpace_MissingPath(t *testing.T) {
	result := CheckFreeSpace(filepath.Join(t.TempDir(), "nope"), 1)
	if result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckEndpoint_AnyResponseCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := CheckEndpoint(context.Background(), "test api", srv.URL)
	if !result.Passed {
		t.Fatalf("expected pass for responding endpoint, got: %s", result.Detail)
	}
	if !result.Optional {
		t.Fatal("endpoint checks should be optional")
	}
}

func TestCheckEndpoint_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	url := srv.URL
	srv.Close()

	result := CheckEndpoint(context.Background(), "test api", url)
	if result.Passed {
		t.Fatal("expected failure for closed endpoint")
	}
	if !result.Optional {
		t.Fatal("endpoint checks should be optional")
	}
}

func TestCheckEndpoint_MissingURL(t *testing.T) {
	result := CheckEndpoint(context.Background(), "test api", "")
	if result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckNotifications_Delivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL + "/tracuu-test"

	result := CheckNotifications(context.Background(), &cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckNotifications_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL + "/tracuu-test"

	result := CheckNotifications(context.Background(), &cfg)
	if result.Passed {
		t.Fatal("expected failure for rejected notification")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_CoversDirectoriesSpaceAndAPIs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.PendingDir = t.TempDir()
	cfg.Paths.DoneDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Lookup.VitaxURL = srv.URL + "/vitax"
	cfg.Lookup.VietQRURL = srv.URL + "/vietqr"
	cfg.Notifications.NtfyTopic = ""

	results := RunAll(context.Background(), &cfg)
	// 5 directories + free space + 2 APIs, no notification check
	if len(results) != 8 {
		t.Fatalf("expected 8 results, got %d", len(results))
	}
	for _, result := range results {
		if result.Name == "Free disk space" {
			continue
		}
		if !result.Passed {
			t.Errorf("check %q failed: %s", result.Name, result.Detail)
		}
	}
}

func TestRunAll_IncludesNotificationsWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.PendingDir = t.TempDir()
	cfg.Paths.DoneDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Lookup.VitaxURL = srv.URL + "/vitax"
	cfg.Lookup.VietQRURL = srv.URL + "/vietqr"
	cfg.Notifications.NtfyTopic = srv.URL + "/tracuu"

	results := RunAll(context.Background(), &cfg)
	found := false
	for _, result := range results {
		if result.Name == "Notifications" {
			found = true
			if !result.Passed {
				t.Errorf("notification check failed: %s", result.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected notification check in results")
	}
}

func TestFailed_IgnoresOptionalChecks(t *testing.T) {
	results := []Result{
		{Name: "required ok", Passed: true},
		{Name: "optional down", Optional: true, Passed: false},
	}
	if Failed(results) {
		t.Fatal("optional failures should not fail preflight")
	}

	results = append(results, Result{Name: "required down", Passed: false})
	if !Failed(results) {
		t.Fatal("required failure should fail preflight")
	}
}
