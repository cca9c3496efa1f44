package cloud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/dlkinney/particle-go/internal/build"
	"github.com/dlkinney/particle-go/internal/logging"
)

// DefaultProductID is the platform used when a compile request does not
// name one (6 is the Photon).
const DefaultProductID = 6

// CompileOptions selects the product platform and optionally pins the
// device OS version a compile targets.
type CompileOptions struct {
	// ProductID is the numeric platform/product identifier (e.g. 6 for
	// Photon). Required.
	ProductID int

	// TargetVersion pins the device OS version to build against (e.g.
	// "1.5.2"). Empty means the cloud default.
	TargetVersion string
}

// CompileSources submits source files to the cloud compiler and interprets
// the outcome. A compile failure is returned as data inside the
// BuildResult; the error return covers infrastructure problems only
// (transport, auth, or a response violating the API schema).
func (c *Client) CompileSources(files []build.SourceFile, opts CompileOptions) (*build.BuildResult, error) {
	form, skipped := compileForm(files, opts)
	if skipped > 0 {
		logging.Warn("skipped source files with invalid UTF-8 contents", zap.Int("count", skipped))
	}

	req, err := c.newRequest(http.MethodPost, "/v1/binaries", bytes.NewReader(form.Bytes()), form.ContentType())
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(form.Len())

	client := *c.HTTPClient
	client.Timeout = DefaultCompileTimeout
	logging.Info("submitting compile request",
		zap.Int("files", len(files)),
		zap.Int("product_id", opts.ProductID),
		zap.String("target_version", opts.TargetVersion),
	)

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewNetworkError("compile request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, NewAuthError("access token rejected")
	}

	// The compile endpoint reports build failures with non-2xx statuses
	// too; success and failure are discriminated by the body, not the
	// status line.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read compile response", err)
	}

	result, err := build.InterpretCompileResponse(body)
	if err != nil {
		return nil, NewProtocolError("compile response rejected", err)
	}
	return result, nil
}

// compileForm encodes the multipart compile request body: product_id,
// optional build_target_version, then one fileN part per source file,
// 1-indexed in caller order. Returns the builder and the count of files
// skipped for invalid UTF-8.
func compileForm(files []build.SourceFile, opts CompileOptions) (*build.FormBuilder, int) {
	form := build.NewFormBuilder()
	form.AddField("product_id", strconv.Itoa(opts.ProductID))
	if opts.TargetVersion != "" {
		form.AddField("build_target_version", opts.TargetVersion)
	}

	skipped := 0
	for i, f := range files {
		if !form.AddTextFile(fmt.Sprintf("file%d", i+1), f.Name, f.Contents) {
			skipped++
		}
	}
	return form, skipped
}

// DownloadBinary fetches the compiled firmware image for a successful
// build. The binary URL the cloud hands back is relative to the API root.
func (c *Client) DownloadBinary(info build.BinaryInfo) ([]byte, error) {
	return c.get(info.BinaryURL)
}

// FlashStatus is the cloud's acknowledgement of a flash request. The
// actual flash happens asynchronously on the device.
type FlashStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// flashResponse is the raw wire shape of a flash acknowledgement.
type flashResponse struct {
	ID     *string `json:"id"`
	Status *string `json:"status"`
}

// FlashBinary sends a prebuilt firmware image to a device over the air.
func (c *Client) FlashBinary(deviceID string, firmware []byte) (FlashStatus, error) {
	form := build.NewFormBuilder()
	form.AddField("file_type", "binary")
	form.AddBinaryFile("file", "firmware.bin", firmware)
	return c.flash(deviceID, form)
}

// FlashSources compiles-and-flashes source files to a device in a single
// cloud call.
func (c *Client) FlashSources(deviceID string, files []build.SourceFile, opts CompileOptions) (FlashStatus, error) {
	form, skipped := compileForm(files, opts)
	if skipped > 0 {
		logging.Warn("skipped source files with invalid UTF-8 contents", zap.Int("count", skipped))
	}
	return c.flash(deviceID, form)
}

func (c *Client) flash(deviceID string, form *build.FormBuilder) (FlashStatus, error) {
	req, err := c.newRequest(http.MethodPut, "/v1/devices/"+url.PathEscape(deviceID),
		bytes.NewReader(form.Bytes()), form.ContentType())
	if err != nil {
		return FlashStatus{}, err
	}
	req.ContentLength = int64(form.Len())

	client := *c.HTTPClient
	client.Timeout = DefaultCompileTimeout

	resp, err := client.Do(req)
	if err != nil {
		return FlashStatus{}, NewNetworkError("flash request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return FlashStatus{}, NewAuthError("access token rejected")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FlashStatus{}, NewNetworkError("failed to read flash response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FlashStatus{}, NewHTTPError(resp.StatusCode, fmt.Sprintf("flash returned status %d: %s", resp.StatusCode, trimBody(body)))
	}

	var raw flashResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return FlashStatus{}, NewParseError("failed to parse flash response", err)
	}
	if raw.ID == nil || raw.Status == nil {
		return FlashStatus{}, NewProtocolError("flash response missing id or status", nil)
	}

	status := FlashStatus{ID: *raw.ID, Status: *raw.Status}
	logging.Info("flash accepted",
		zap.String("device", status.ID),
		zap.String("status", status.Status),
	)
	return status, nil
}
