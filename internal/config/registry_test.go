package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !strings.Contains(configDir, "particle") {
		t.Errorf("GetConfigDir() = %v, should contain 'particle'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}

	t.Logf("Config directory: %s", configDir)
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should be initialized")
	}
	if reg.Defaults == nil || reg.Defaults.ProductID != 6 {
		t.Errorf("NewRegistry().Defaults = %+v, want ProductID 6", reg.Defaults)
	}
	if reg.AccessToken() != "" {
		t.Error("new registry should have no access token")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	reg := NewRegistry()

	reg.SetAccessToken("user@example.com", "tok123")
	if reg.AccessToken() != "tok123" {
		t.Errorf("AccessToken() = %q, want tok123", reg.AccessToken())
	}
	if reg.Auth.Username != "user@example.com" {
		t.Errorf("Username = %q", reg.Auth.Username)
	}

	reg.ClearAccessToken()
	if reg.AccessToken() != "" {
		t.Error("ClearAccessToken did not clear the token")
	}
	if reg.Auth.Username != "user@example.com" {
		t.Error("ClearAccessToken should keep the username for the next login")
	}
}

func TestEnsureDevice(t *testing.T) {
	reg := NewRegistry()

	device := reg.EnsureDevice("53ff6f0650723")
	if device == nil {
		t.Fatal("EnsureDevice returned nil")
	}

	// Second call returns the same entry
	device.Nickname = "bench unit"
	again := reg.EnsureDevice("53ff6f0650723")
	if again.Nickname != "bench unit" {
		t.Error("EnsureDevice created a fresh entry for an existing device")
	}
}

func TestEnsureDeviceNilMap(t *testing.T) {
	reg := &Registry{Version: 1}

	// Must not panic with an uninitialized map
	reg.EnsureDevice("x")
	if reg.Devices["x"] == nil {
		t.Error("device not recorded")
	}
}

func TestSetDeviceNickname(t *testing.T) {
	reg := NewRegistry()
	reg.SetDeviceNickname("53ff6f0650723", "garage sensor")

	if got := reg.GetDevice("53ff6f0650723").Nickname; got != "garage sensor" {
		t.Errorf("Nickname = %q, want 'garage sensor'", got)
	}
}

func TestRecordFlash(t *testing.T) {
	reg := NewRegistry()

	before := time.Now().Add(-time.Second)
	reg.RecordFlash("53ff6f0650723")

	got := reg.GetDevice("53ff6f0650723").LastFlashed
	if got.Before(before) {
		t.Errorf("LastFlashed = %v, want recent", got)
	}
}

func TestGetDeviceMissing(t *testing.T) {
	reg := NewRegistry()
	if reg.GetDevice("nope") != nil {
		t.Error("GetDevice for unknown ID should return nil")
	}
}

func TestRegistryYAMLRoundTrip(t *testing.T) {
	reg := NewRegistry()
	reg.SetAccessToken("user@example.com", "tok123")
	reg.Defaults.TargetVersion = "1.5.2"
	reg.SetDeviceNickname("53ff6f0650723", "bench unit")

	data, err := yaml.Marshal(reg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var loaded Registry
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if loaded.AccessToken() != "tok123" {
		t.Errorf("round-trip lost access token: %q", loaded.AccessToken())
	}
	if loaded.Defaults.TargetVersion != "1.5.2" {
		t.Errorf("round-trip lost target version: %q", loaded.Defaults.TargetVersion)
	}
	if d := loaded.GetDevice("53ff6f0650723"); d == nil || d.Nickname != "bench unit" {
		t.Errorf("round-trip lost device metadata: %+v", d)
	}
}

func TestSaveAndReload(t *testing.T) {
	// Point the config dir at a temp location
	tmpDir := t.TempDir()
	switch runtime.GOOS {
	case "windows":
		t.Setenv("LOCALAPPDATA", tmpDir)
	default:
		t.Setenv("XDG_CONFIG_HOME", tmpDir)
	}
	if runtime.GOOS == "darwin" {
		t.Setenv("HOME", tmpDir)
	}

	reg := NewRegistry()
	reg.SetAccessToken("user@example.com", "tok123")
	if err := reg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if runtime.GOOS != "windows" {
		if mode := info.Mode().Perm(); mode != 0600 {
			t.Errorf("config file mode = %o, want 0600 (file contains a token)", mode)
		}
	}

	loaded, err := ReloadRegistry()
	if err != nil {
		t.Fatalf("ReloadRegistry() error = %v", err)
	}
	if loaded.AccessToken() != "tok123" {
		t.Errorf("reloaded token = %q, want tok123", loaded.AccessToken())
	}
}
