// Package disk provides a Yandex Disk REST adapter for the bot's
// document tree: folder creation, listings, download links, uploads and
// deletion. Calls are single-attempt and fail-soft; callers degrade to a
// user-visible message on failure.
package disk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
)

// DefaultBaseURL is the Yandex Disk cloud API root.
const DefaultBaseURL = "https://cloud-api.yandex.net/v1/disk"

// Size limits enforced at the adapter boundary.
const (
	// MaxDownloadSize rejects direct downloads above 20MB.
	MaxDownloadSize = 20 << 20
	// MaxUploadSize rejects uploads above 50MB.
	MaxUploadSize = 50 << 20
)

// supportedExtensions is the allowlist applied to file listings and uploads.
var supportedExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".cdr", ".eps", ".png", ".jpg", ".jpeg",
}

// SupportedExtension reports whether the file name carries an allowed
// extension (case-insensitive).
func SupportedExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range supportedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ValidateUpload checks a candidate upload against the extension
// allowlist and the size cap.
func ValidateUpload(name string, size int64) error {
	if !SupportedExtension(name) {
		return models.ErrUnsupportedFile
	}
	if size > MaxUploadSize {
		return models.ErrFileTooLarge
	}
	return nil
}

// NormalizePath trims the trailing slash of a folder path. The root
// sentinel "/" is preserved.
func NormalizePath(path string) string {
	if path == "/" {
		return path
	}
	return strings.TrimRight(path, "/")
}

// ClientInterface is the file-storage boundary consumed by the bot.
type ClientInterface interface {
	EnsureFolder(ctx context.Context, path string) bool
	ListDirectories(ctx context.Context, path string) []string
	ListFiles(ctx context.Context, path string) []models.DiskItem
	DownloadLink(ctx context.Context, path string) (string, error)
	Upload(ctx context.Context, content []byte, name, folder string) bool
	Delete(ctx context.Context, path string) bool
}

// Client talks to the Yandex Disk REST API.
type Client struct {
	http *resty.Client
}

// NewClient creates a Yandex Disk client authorized by an OAuth token.
func NewClient(token string, baseURL string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("Yandex Disk token not set")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	http := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "OAuth "+token)
	slog.Debug("Disk client created", "baseURL", baseURL)
	return &Client{http: http}, nil
}

type resourceList struct {
	Embedded struct {
		Items []models.DiskItem `json:"items"`
	} `json:"_embedded"`
}

type linkResponse struct {
	Href string `json:"href"`
}

// EnsureFolder creates the remote folder if it does not exist. Returns
// true when the folder exists afterwards.
func (c *Client) EnsureFolder(ctx context.Context, path string) bool {
	path = NormalizePath(path)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		Get("/resources")
	if err != nil {
		slog.Error("Disk EnsureFolder probe failed", "error", err, "path", path)
		return false
	}
	if resp.StatusCode() == 200 {
		slog.Debug("Disk folder already exists", "path", path)
		return true
	}

	resp, err = c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		Put("/resources")
	if err != nil {
		slog.Error("Disk EnsureFolder create failed", "error", err, "path", path)
		return false
	}
	// 409 means the folder appeared between probe and create.
	if resp.StatusCode() == 201 || resp.StatusCode() == 409 {
		slog.Info("Disk folder created", "path", path)
		return true
	}
	slog.Error("Disk EnsureFolder unexpected status", "status", resp.StatusCode(), "path", path, "body", resp.String())
	return false
}

// listItems fetches the folder listing, optionally filtered by item type
// ("dir" or "file").
func (c *Client) listItems(ctx context.Context, path, itemType string) []models.DiskItem {
	path = NormalizePath(path)
	var list resourceList
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		SetQueryParam("fields", "_embedded.items.name,_embedded.items.type,_embedded.items.path,_embedded.items.size").
		SetQueryParam("limit", "100").
		SetResult(&list).
		Get("/resources")
	if err != nil {
		slog.Error("Disk listing request failed", "error", err, "path", path)
		return nil
	}
	if resp.StatusCode() != 200 {
		slog.Error("Disk listing unexpected status", "status", resp.StatusCode(), "path", path, "body", resp.String())
		return nil
	}
	if itemType == "" {
		return list.Embedded.Items
	}
	var filtered []models.DiskItem
	for _, item := range list.Embedded.Items {
		if item.Type == itemType {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// ListDirectories returns the subfolder names of a folder.
func (c *Client) ListDirectories(ctx context.Context, path string) []string {
	items := c.listItems(ctx, path, "dir")
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names
}

// ListFiles returns the files of a folder, filtered by the supported
// extension allowlist.
func (c *Client) ListFiles(ctx context.Context, path string) []models.DiskItem {
	items := c.listItems(ctx, path, "file")
	var files []models.DiskItem
	for _, item := range items {
		if SupportedExtension(item.Name) {
			files = append(files, item)
		}
	}
	slog.Debug("Disk ListFiles", "path", path, "count", len(files))
	return files
}

// DownloadLink returns a direct download URL for a file.
func (c *Client) DownloadLink(ctx context.Context, path string) (string, error) {
	path = NormalizePath(path)
	var link linkResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		SetResult(&link).
		Get("/resources/download")
	if err != nil {
		slog.Error("Disk DownloadLink request failed", "error", err, "path", path)
		return "", fmt.Errorf("download link request for %s failed: %w", path, err)
	}
	if resp.StatusCode() != 200 || link.Href == "" {
		slog.Error("Disk DownloadLink unexpected status", "status", resp.StatusCode(), "path", path, "body", resp.String())
		return "", fmt.Errorf("no download link for %s (status %d)", path, resp.StatusCode())
	}
	return link.Href, nil
}

// Upload stores content under folder/name. Returns true on success.
func (c *Client) Upload(ctx context.Context, content []byte, name, folder string) bool {
	if err := ValidateUpload(name, int64(len(content))); err != nil {
		slog.Warn("Disk Upload rejected", "error", err, "name", name, "size", len(content))
		return false
	}
	folder = NormalizePath(folder)
	filePath := folder + "/" + name

	var link linkResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", filePath).
		SetQueryParam("overwrite", "true").
		SetResult(&link).
		Get("/resources/upload")
	if err != nil {
		slog.Error("Disk Upload link request failed", "error", err, "path", filePath)
		return false
	}
	if resp.StatusCode() != 200 || link.Href == "" {
		slog.Error("Disk Upload link unexpected status", "status", resp.StatusCode(), "path", filePath)
		return false
	}

	// The upload URL is absolute and outside the API base.
	uploadResp, err := resty.New().R().
		SetContext(ctx).
		SetBody(content).
		Put(link.Href)
	if err != nil {
		slog.Error("Disk Upload transfer failed", "error", err, "path", filePath)
		return false
	}
	if uploadResp.StatusCode() != 201 && uploadResp.StatusCode() != 202 {
		slog.Error("Disk Upload transfer unexpected status", "status", uploadResp.StatusCode(), "path", filePath)
		return false
	}
	slog.Info("Disk file uploaded", "path", filePath, "size", len(content))
	return true
}

// Delete removes a file or folder. Returns true on success.
func (c *Client) Delete(ctx context.Context, path string) bool {
	path = NormalizePath(path)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		Delete("/resources")
	if err != nil {
		slog.Error("Disk Delete request failed", "error", err, "path", path)
		return false
	}
	if resp.StatusCode() == 204 || resp.StatusCode() == 202 {
		slog.Info("Disk path deleted", "path", path)
		return true
	}
	slog.Error("Disk Delete unexpected status", "status", resp.StatusCode(), "path", path)
	return false
}
