package cloud

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/dlkinney/particle-go/internal/build"
)

const mockCompileSuccess = `{
	"ok": true,
	"binary_id": "5837f1ba71b4f7d23c01a9a2",
	"binary_url": "/v1/binaries/5837f1ba71b4f7d23c01a9a2",
	"expires_at": "2020-01-01T00:00:00Z",
	"sizeInfo": "   text\t   data\t    bss\t    dec\t    hex\tfilename\n 101312\t2152\t9880\t113344\t1bac0\t"
}`

const mockCompileFailure = `{
	"ok": false,
	"output": "Compiler timed out or encountered an error",
	"stdout": "make -C ../modules/photon/user-part all",
	"errors": ["app.ino:5:3: error: 'digitalWrit' was not declared in this scope\n   digitalWrit(D7, HIGH);\n   ^"]
}`

func testSources() []build.SourceFile {
	return []build.SourceFile{
		{Name: "app.ino", Contents: []byte("void setup() {}\nvoid loop() {}\n")},
		{Name: "lib/helper.h", Contents: []byte("#define HELPER 1\n")},
	}
}

func TestCompileSourcesSuccess(t *testing.T) {
	var gotMethod, gotPath string
	var form map[string][]string
	var files map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		form, files = parseMultipart(t, r)
		_, _ = w.Write([]byte(mockCompileSuccess))
	})

	result, err := client.CompileSources(testSources(), CompileOptions{ProductID: 6, TargetVersion: "1.5.2"})
	if err != nil {
		t.Fatalf("CompileSources() error = %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/v1/binaries" {
		t.Errorf("request = %s %s, want POST /v1/binaries", gotMethod, gotPath)
	}
	if got := form["product_id"]; len(got) != 1 || got[0] != "6" {
		t.Errorf("product_id = %v, want [6]", got)
	}
	if got := form["build_target_version"]; len(got) != 1 || got[0] != "1.5.2" {
		t.Errorf("build_target_version = %v, want [1.5.2]", got)
	}
	// Go's multipart reader basenames the filename directive, so the
	// lib/helper.h part shows up as helper.h here.
	if files["file1"] != "app.ino" || files["file2"] != "helper.h" {
		t.Errorf("file parts = %v", files)
	}

	if !result.Succeeded() {
		t.Fatal("result.Succeeded() = false, want true")
	}
	if result.Binary.BinaryID != "5837f1ba71b4f7d23c01a9a2" {
		t.Errorf("BinaryID = %q", result.Binary.BinaryID)
	}
	if want := (build.SizeReport{Text: 101312, Data: 2152, BSS: 9880, Size: 113344}); result.Binary.SizeInfo != want {
		t.Errorf("SizeInfo = %+v, want %+v", result.Binary.SizeInfo, want)
	}
}

func TestCompileSourcesOmitsEmptyTargetVersion(t *testing.T) {
	var form map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		form, _ = parseMultipart(t, r)
		_, _ = w.Write([]byte(mockCompileSuccess))
	})

	if _, err := client.CompileSources(testSources(), CompileOptions{ProductID: 6}); err != nil {
		t.Fatalf("CompileSources() error = %v", err)
	}
	if _, present := form["build_target_version"]; present {
		t.Error("build_target_version sent despite being unset")
	}
}

func TestCompileSourcesFailureIsDataNotError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// The compile endpoint reports build failures with an error status
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(mockCompileFailure))
	})

	result, err := client.CompileSources(testSources(), CompileOptions{ProductID: 6})
	if err != nil {
		t.Fatalf("CompileSources() error = %v, want compile failure as data", err)
	}
	if result.Succeeded() {
		t.Fatal("result.Succeeded() = true, want false")
	}

	f := result.Failure
	if len(f.Issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(f.Issues))
	}
	issue := f.Issues[0]
	if issue.Filename != "app.ino" || issue.Line != 5 || issue.Column != 3 {
		t.Errorf("issue position = %+v", issue)
	}
	if !strings.Contains(issue.Message, "digitalWrit(D7, HIGH);") {
		t.Errorf("continuation lines missing from message: %q", issue.Message)
	}
}

func TestCompileSourcesProtocolMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true}`))
	})

	result, err := client.CompileSources(testSources(), CompileOptions{ProductID: 6})
	if result != nil {
		t.Errorf("got result %+v, want nil", result)
	}
	if !IsProtocolError(err) {
		t.Errorf("error = %v, want protocol error", err)
	}
}

func TestCompileSourcesMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>502 Bad Gateway</html>`))
	})

	result, err := client.CompileSources(testSources(), CompileOptions{ProductID: 6})
	if result != nil {
		t.Errorf("got result %+v, want nil", result)
	}
	if !IsProtocolError(err) {
		t.Errorf("error = %v, want protocol error", err)
	}
}

func TestDownloadBinary(t *testing.T) {
	firmware := []byte{0x01, 0x02, 0x03, 0x04}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/binaries/5837f1ba71b4f7d23c01a9a2" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write(firmware)
	})

	got, err := client.DownloadBinary(build.BinaryInfo{BinaryURL: "/v1/binaries/5837f1ba71b4f7d23c01a9a2"})
	if err != nil {
		t.Fatalf("DownloadBinary() error = %v", err)
	}
	if !bytes.Equal(got, firmware) {
		t.Errorf("got %v, want %v", got, firmware)
	}
}

func TestFlashBinary(t *testing.T) {
	firmware := []byte{0x7f, 0x45, 0x00, 0xff}

	var gotMethod, gotPath string
	var form map[string][]string
	var fileContents []byte

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		form = r.MultipartForm.Value
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		defer func() { _ = file.Close() }()
		fileContents, _ = io.ReadAll(file)
		_, _ = w.Write([]byte(`{"id":"53ff6f0650723","status":"Update started"}`))
	})

	status, err := client.FlashBinary("53ff6f0650723", firmware)
	if err != nil {
		t.Fatalf("FlashBinary() error = %v", err)
	}

	if gotMethod != http.MethodPut || gotPath != "/v1/devices/53ff6f0650723" {
		t.Errorf("request = %s %s, want PUT /v1/devices/53ff6f0650723", gotMethod, gotPath)
	}
	if got := form["file_type"]; len(got) != 1 || got[0] != "binary" {
		t.Errorf("file_type = %v, want [binary]", got)
	}
	if !bytes.Equal(fileContents, firmware) {
		t.Errorf("uploaded firmware = %v, want %v", fileContents, firmware)
	}
	if status.ID != "53ff6f0650723" || status.Status != "Update started" {
		t.Errorf("status = %+v", status)
	}
}

func TestFlashSources(t *testing.T) {
	var files map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, files = parseMultipart(t, r)
		_, _ = w.Write([]byte(`{"id":"53ff6f0650723","status":"Update started"}`))
	})

	status, err := client.FlashSources("53ff6f0650723", testSources(), CompileOptions{ProductID: 6})
	if err != nil {
		t.Fatalf("FlashSources() error = %v", err)
	}
	if files["file1"] != "app.ino" {
		t.Errorf("file parts = %v", files)
	}
	if status.Status != "Update started" {
		t.Errorf("status = %+v", status)
	}
}

func TestFlashResponseMissingFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true}`))
	})

	_, err := client.FlashBinary("53ff6f0650723", []byte{1})
	if !IsProtocolError(err) {
		t.Errorf("error = %v, want protocol error", err)
	}
}

// parseMultipart decodes a multipart request into scalar form values and a
// map of file field name to submitted filename.
func parseMultipart(t *testing.T, r *http.Request) (map[string][]string, map[string]string) {
	t.Helper()
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("ParseMultipartForm() error = %v", err)
	}

	files := make(map[string]string)
	for field, headers := range r.MultipartForm.File {
		if len(headers) > 0 {
			files[field] = headers[0].Filename
		}
	}
	return r.MultipartForm.Value, files
}
