/*
Copyright 2026 The Launchline Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// The file contains unit tests for host environment bootstrap.
package hostenv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckInterpreter(t *testing.T) {
	// sh exists on any host these tests run on
	path, err := CheckInterpreter("sh")
	if err != nil {
		t.Fatalf("CheckInterpreter(sh) error = %v", err)
	}
	if path == "" {
		t.Error("expected a resolved path for sh")
	}

	_, err = CheckInterpreter("definitely-not-a-real-interpreter-9000")
	if !errors.Is(err, ErrInterpreterMissing) {
		t.Errorf("expected ErrInterpreterMissing, got %v", err)
	}
}

func TestEnsureEnvDirCreates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "venv")

	created, err := EnsureEnvDir(dir)
	if err != nil {
		t.Fatalf("EnsureEnvDir() error = %v", err)
	}
	if !created {
		t.Error("expected the directory to be created")
	}
	if _, err := os.Stat(filepath.Join(dir, markerFile)); err != nil {
		t.Errorf("expected the marker file to exist: %v", err)
	}

	// second call is a no-op
	created, err = EnsureEnvDir(dir)
	if err != nil {
		t.Fatalf("EnsureEnvDir() second call error = %v", err)
	}
	if created {
		t.Error("expected no creation on the second call")
	}
}

func TestEnsureEnvDirRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := EnsureEnvDir(path); err == nil {
		t.Error("expected an error when the path is a regular file")
	}
}

func TestLoadDotenv(t *testing.T) {
	t.Run("missing file is fine", func(t *testing.T) {
		if err := LoadDotenv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
			t.Errorf("LoadDotenv() error = %v", err)
		}
	})

	t.Run("variables are loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("HOSTENV_TEST_TOKEN=abc123\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.Unsetenv("HOSTENV_TEST_TOKEN") })

		if err := LoadDotenv(path); err != nil {
			t.Fatalf("LoadDotenv() error = %v", err)
		}
		if got := os.Getenv("HOSTENV_TEST_TOKEN"); got != "abc123" {
			t.Errorf("expected abc123, got %q", got)
		}
	})

	t.Run("malformed file errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("JUSTAWORDWITHNOSEPARATOR\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := LoadDotenv(path); err == nil {
			t.Error("expected an error for a malformed env file")
		}
	})
}
