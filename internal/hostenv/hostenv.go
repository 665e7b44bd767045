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

// Package hostenv prepares a host machine for launching the application
// outside a container: interpreter presence checks, local environment
// directory bootstrap, and .env loading.
package hostenv

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/joho/godotenv"
)

// ErrInterpreterMissing is returned when the required runtime is not on PATH.
var ErrInterpreterMissing = errors.New("required interpreter not found")

// markerFile records that the environment directory was created by us.
const markerFile = ".launchline"

// CheckInterpreter verifies the named runtime is available on PATH and
// returns its resolved path. The caller must abort setup when this fails.
func CheckInterpreter(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInterpreterMissing, name)
	}
	return path, nil
}

// EnsureEnvDir creates the local environment directory if it does not exist
// and reports whether it was created by this call.
func EnsureEnvDir(path string) (bool, error) {
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("environment path %s exists and is not a directory", path)
		}
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to inspect environment path: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return false, fmt.Errorf("failed to create environment directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, markerFile), nil, 0o644); err != nil {
		return false, fmt.Errorf("failed to write environment marker: %w", err)
	}
	return true, nil
}

// LoadDotenv loads environment variables from the given file. A missing file
// is not an error; the local .env is optional.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
