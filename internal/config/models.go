package config

import "time"

// Registry represents the entire user configuration file.
// This stores credentials, build defaults, and user-defined metadata for
// devices claimed by the account.
type Registry struct {
	Version  int                `yaml:"version"`
	Auth     *AuthSettings      `yaml:"auth,omitempty"`
	Defaults *BuildDefaults     `yaml:"defaults,omitempty"`
	Devices  map[string]*Device `yaml:"devices,omitempty"` // Keyed by device ID
}

// AuthSettings holds the account identity and the issued access token.
// The account password is NEVER stored - it is prompted at login and
// exchanged for a token immediately.
type AuthSettings struct {
	Username    string `yaml:"username,omitempty"`     // Account email address
	AccessToken string `yaml:"access_token,omitempty"` // Bearer token from the last login
}

// BuildDefaults holds the compile settings applied when a command does not
// override them.
type BuildDefaults struct {
	ProductID     int    `yaml:"product_id"`               // Platform/product identifier (e.g. 6 for Photon)
	TargetVersion string `yaml:"target_version,omitempty"` // Device OS version to build against
}

// Device represents user-defined metadata for a single device.
// This is purely client-side information; the cloud is the source of truth
// for the device's name and state.
type Device struct {
	Nickname    string    `yaml:"nickname,omitempty"`     // User-friendly name
	Notes       string    `yaml:"notes,omitempty"`        // Free-form notes
	LastFlashed time.Time `yaml:"last_flashed,omitempty"` // Time of the last flash from this machine
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Devices: make(map[string]*Device),
		Defaults: &BuildDefaults{
			ProductID: 6, // Photon
		},
	}
}

// AccessToken returns the stored access token, or empty when not logged in.
func (r *Registry) AccessToken() string {
	if r.Auth == nil {
		return ""
	}
	return r.Auth.AccessToken
}

// SetAccessToken records the account identity and token issued at login.
func (r *Registry) SetAccessToken(username, token string) {
	if r.Auth == nil {
		r.Auth = &AuthSettings{}
	}
	r.Auth.Username = username
	r.Auth.AccessToken = token
}

// ClearAccessToken removes the stored token. The username is kept so the
// next login can default to it.
func (r *Registry) ClearAccessToken() {
	if r.Auth != nil {
		r.Auth.AccessToken = ""
	}
}

// GetDevice retrieves device metadata by device ID.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(deviceID string) *Device {
	return r.Devices[deviceID]
}

// EnsureDevice ensures a device entry exists in the registry.
// If the device doesn't exist, creates a new entry with default values.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(deviceID string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[deviceID]; exists {
		return device
	}

	device := &Device{}
	r.Devices[deviceID] = device
	return device
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(deviceID, nickname string) {
	device := r.EnsureDevice(deviceID)
	device.Nickname = nickname
}

// RecordFlash updates the last-flashed timestamp for a device.
func (r *Registry) RecordFlash(deviceID string) {
	device := r.EnsureDevice(deviceID)
	device.LastFlashed = time.Now()
}
