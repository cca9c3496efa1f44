package cloud

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Device represents one device record as returned by the /v1/devices
// endpoints.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Connected  bool   `json:"connected"`
	PlatformID int    `json:"platform_id"`
	ProductID  int    `json:"product_id"`
	Cellular   bool   `json:"cellular"`
	Status     string `json:"status"`

	// LastHeard is zero when the cloud has never heard from the device
	LastHeard time.Time `json:"last_heard"`

	// LastIPAddress is the address of the device's most recent connection
	LastIPAddress string `json:"last_ip_address"`

	// SystemFirmwareVersion is the device OS version, when reported
	SystemFirmwareVersion string `json:"system_firmware_version"`
}

// deviceRecord is the raw wire shape; last_heard arrives as an RFC 3339
// string or null.
type deviceRecord struct {
	ID                    *string `json:"id"`
	Name                  string  `json:"name"`
	Connected             bool    `json:"connected"`
	PlatformID            int     `json:"platform_id"`
	ProductID             int     `json:"product_id"`
	Cellular              bool    `json:"cellular"`
	Status                string  `json:"status"`
	LastHeard             *string `json:"last_heard"`
	LastIPAddress         string  `json:"last_ip_address"`
	SystemFirmwareVersion string  `json:"system_firmware_version"`
}

// toDevice validates the record and converts it to a Device. A record
// without an id violates the API schema.
func (r *deviceRecord) toDevice() (Device, error) {
	if r.ID == nil || *r.ID == "" {
		return Device{}, NewProtocolError("device record missing id", nil)
	}

	d := Device{
		ID:                    *r.ID,
		Name:                  r.Name,
		Connected:             r.Connected,
		PlatformID:            r.PlatformID,
		ProductID:             r.ProductID,
		Cellular:              r.Cellular,
		Status:                r.Status,
		LastIPAddress:         r.LastIPAddress,
		SystemFirmwareVersion: r.SystemFirmwareVersion,
	}

	if r.LastHeard != nil && *r.LastHeard != "" {
		t, err := time.Parse(time.RFC3339, *r.LastHeard)
		if err != nil {
			return Device{}, NewProtocolError(fmt.Sprintf("device %s has bad last_heard %q", d.ID, *r.LastHeard), err)
		}
		d.LastHeard = t
	}

	return d, nil
}

// ListDevices returns all devices claimed by the account.
func (c *Client) ListDevices() ([]Device, error) {
	body, err := c.get("/v1/devices")
	if err != nil {
		return nil, err
	}

	var records []deviceRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, NewParseError("failed to parse device list", err)
	}

	devices := make([]Device, 0, len(records))
	for i := range records {
		d, err := records[i].toDevice()
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// GetDevice returns a single device by ID or name.
func (c *Client) GetDevice(deviceID string) (Device, error) {
	body, err := c.get("/v1/devices/" + url.PathEscape(deviceID))
	if err != nil {
		return Device{}, err
	}

	var record deviceRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return Device{}, NewParseError("failed to parse device", err)
	}
	return record.toDevice()
}

// RenameDevice assigns a new name to a claimed device.
func (c *Client) RenameDevice(deviceID, name string) error {
	form := url.Values{}
	form.Set("name", name)

	req, err := c.newRequest(http.MethodPut, "/v1/devices/"+url.PathEscape(deviceID),
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}

	body, err := c.do(req)
	if err != nil {
		return err
	}

	var updated deviceRecord
	if err := json.Unmarshal(body, &updated); err != nil {
		return NewParseError("failed to parse rename response", err)
	}
	if updated.Name != name {
		return NewProtocolError(fmt.Sprintf("rename not applied: cloud reports name %q", updated.Name), nil)
	}
	return nil
}
