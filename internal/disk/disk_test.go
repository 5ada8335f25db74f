package disk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
)

func TestSupportedExtension(t *testing.T) {
	cases := map[string]bool{
		"отчёт.pdf":    true,
		"logo.CDR":     true,
		"scan.JPEG":    true,
		"notes.txt":    false,
		"archive.zip":  false,
		"presentation": false,
	}
	for name, want := range cases {
		if got := SupportedExtension(name); got != want {
			t.Errorf("SupportedExtension(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath("/Регионы/Москва/"); got != "/Регионы/Москва" {
		t.Errorf("trailing slash should be trimmed, got %q", got)
	}
	if got := NormalizePath("/"); got != "/" {
		t.Errorf("root sentinel must be preserved, got %q", got)
	}
	if got := NormalizePath("/a"); got != "/a" {
		t.Errorf("clean path should be unchanged, got %q", got)
	}
}

// newTestClient points the adapter at a local httptest server.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient("test-token", srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestEnsureFolderExisting(t *testing.T) {
	var puts int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			puts++
		}
		w.WriteHeader(http.StatusOK)
	}))
	if !c.EnsureFolder(context.Background(), "/Регионы/Москва/") {
		t.Errorf("existing folder should report true")
	}
	if puts != 0 {
		t.Errorf("existing folder must not be re-created")
	}
}

func TestEnsureFolderCreates(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			if got := r.URL.Query().Get("path"); got != "/Регионы/Тверская область" {
				t.Errorf("create path = %q", got)
			}
			w.WriteHeader(http.StatusCreated)
		}
	}))
	if !c.EnsureFolder(context.Background(), "/Регионы/Тверская область/") {
		t.Errorf("folder creation should report true")
	}
}

func TestListFilesFiltersExtensions(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"_embedded": map[string]interface{}{
				"items": []map[string]interface{}{
					{"name": "устав.pdf", "type": "file", "path": "/docs/устав.pdf", "size": 1 << 20},
					{"name": "дамп.sql", "type": "file", "path": "/docs/дамп.sql", "size": 5},
					{"name": "Архив", "type": "dir", "path": "/docs/Архив"},
				},
			},
		})
	}))
	files := c.ListFiles(context.Background(), "/docs")
	if len(files) != 1 || files[0].Name != "устав.pdf" {
		t.Errorf("ListFiles = %v, want only устав.pdf", files)
	}
	if files[0].Size != 1<<20 {
		t.Errorf("file size not carried through listing, got %d", files[0].Size)
	}
	dirs := c.ListDirectories(context.Background(), "/docs")
	if len(dirs) != 1 || dirs[0] != "Архив" {
		t.Errorf("ListDirectories = %v, want [Архив]", dirs)
	}
}

func TestValidateUpload(t *testing.T) {
	if err := ValidateUpload("отчёт.xlsx", 1024); err != nil {
		t.Errorf("supported small file rejected: %v", err)
	}
	if err := ValidateUpload("malware.exe", 1024); !errors.Is(err, models.ErrUnsupportedFile) {
		t.Errorf("want ErrUnsupportedFile, got %v", err)
	}
	if err := ValidateUpload("big.pdf", MaxUploadSize+1); !errors.Is(err, models.ErrFileTooLarge) {
		t.Errorf("want ErrFileTooLarge, got %v", err)
	}
}

func TestDownloadLink(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"href": "https://downloader.example/file"})
	}))
	href, err := c.DownloadLink(context.Background(), "/docs/устав.pdf")
	if err != nil {
		t.Fatalf("DownloadLink: %v", err)
	}
	if href != "https://downloader.example/file" {
		t.Errorf("href = %q", href)
	}
}

func TestDownloadLinkFailureIsError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	if _, err := c.DownloadLink(context.Background(), "/nope.pdf"); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestUploadRejectsOversizedAndUnsupported(t *testing.T) {
	var requests int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))

	big := make([]byte, MaxUploadSize+1)
	if c.Upload(context.Background(), big, "big.pdf", "/docs") {
		t.Errorf("oversized upload must be rejected")
	}
	if c.Upload(context.Background(), []byte("x"), "malware.exe", "/docs") {
		t.Errorf("unsupported extension must be rejected")
	}
	if requests != 0 {
		t.Errorf("rejected uploads must not hit the network, got %d requests", requests)
	}
}

func TestDeleteStatusCodes(t *testing.T) {
	status := http.StatusNoContent
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	if !c.Delete(context.Background(), "/docs/old.pdf") {
		t.Errorf("204 should report success")
	}
	status = http.StatusForbidden
	if c.Delete(context.Background(), "/docs/old.pdf") {
		t.Errorf("403 should report failure")
	}
}
