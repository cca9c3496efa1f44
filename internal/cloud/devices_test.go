package cloud

import (
	"net/http"
	"testing"
	"time"
)

const mockDeviceList = `[
	{"id":"53ff6f0650723","name":"plumber_laser","last_heard":"2020-01-24T17:04:27.614Z","connected":false,"platform_id":0,"product_id":0,"cellular":false,"status":"normal","last_ip_address":"10.0.0.1"},
	{"id":"250031000447343337373738","name":"bench_photon","last_heard":null,"connected":true,"platform_id":6,"product_id":6,"cellular":false,"status":"normal","system_firmware_version":"1.5.2"}
]`

func TestListDevices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/devices" {
			t.Errorf("path = %s, want /v1/devices", r.URL.Path)
		}
		_, _ = w.Write([]byte(mockDeviceList))
	})

	devices, err := client.ListDevices()
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}

	first := devices[0]
	if first.ID != "53ff6f0650723" || first.Name != "plumber_laser" {
		t.Errorf("device 0 = %+v", first)
	}
	if first.Connected {
		t.Error("device 0 should be disconnected")
	}
	want := time.Date(2020, 1, 24, 17, 4, 27, 614000000, time.UTC)
	if !first.LastHeard.Equal(want) {
		t.Errorf("LastHeard = %v, want %v", first.LastHeard, want)
	}

	second := devices[1]
	if !second.LastHeard.IsZero() {
		t.Errorf("null last_heard should decode to zero time, got %v", second.LastHeard)
	}
	if second.SystemFirmwareVersion != "1.5.2" {
		t.Errorf("SystemFirmwareVersion = %q", second.SystemFirmwareVersion)
	}
}

func TestListDevicesEmptyAccount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	devices, err := client.ListDevices()
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("got %d devices, want 0", len(devices))
	}
}

func TestListDevicesRejectsRecordWithoutID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"nameless"}]`))
	})

	_, err := client.ListDevices()
	if !IsProtocolError(err) {
		t.Errorf("error = %v, want protocol error", err)
	}
}

func TestGetDevice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/devices/53ff6f0650723" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"53ff6f0650723","name":"plumber_laser","connected":true,"platform_id":6,"product_id":6,"status":"normal"}`))
	})

	device, err := client.GetDevice("53ff6f0650723")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if device.Name != "plumber_laser" || !device.Connected {
		t.Errorf("device = %+v", device)
	}
}

func TestGetDeviceParseError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>login</html>`))
	})

	_, err := client.GetDevice("53ff6f0650723")
	if !IsParseError(err) {
		t.Errorf("error = %v, want parse error", err)
	}
}

func TestRenameDevice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if got := r.PostFormValue("name"); got != "garage_door" {
			t.Errorf("name = %q, want garage_door", got)
		}
		_, _ = w.Write([]byte(`{"id":"53ff6f0650723","name":"garage_door"}`))
	})

	if err := client.RenameDevice("53ff6f0650723", "garage_door"); err != nil {
		t.Fatalf("RenameDevice() error = %v", err)
	}
}

func TestRenameDeviceNotApplied(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"53ff6f0650723","name":"old_name"}`))
	})

	err := client.RenameDevice("53ff6f0650723", "garage_door")
	if !IsProtocolError(err) {
		t.Errorf("error = %v, want protocol error", err)
	}
}
