// Package upload sends staged symbol artifacts to the crash-reporting backend.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"dsymup/internal/apperr"
	"dsymup/internal/models"
	"dsymup/internal/staging"
)

const (
	defaultHTTPTimeout = 2 * time.Minute
	resourcePath       = "stats/breakpad/symbols"
	maxResponseBytes   = 64 << 10

	HeaderAppID  = "X-AVOSCloud-Application-Id"
	HeaderAppKey = "X-AVOSCloud-Application-Key"

	// SuccessBody is the only response body the backend uses to signal success.
	// Any other body, including `{ }` or `{}` plus a newline, is a failure.
	SuccessBody = "{}"
)

// Client uploads symbol files to a region's backend.
type Client struct {
	http       *http.Client
	scheme     string
	apiVersion string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the overall request timeout. It applies to a copy, so a
// client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// NewClient creates a client for the given API version literal, e.g. "1.1".
func NewClient(apiVersion string, opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: defaultHTTPTimeout},
		scheme:     "https",
		apiVersion: strings.Trim(strings.TrimSpace(apiVersion), "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint composes the symbol upload URL for domain.
func (c *Client) Endpoint(domain string) string {
	u := url.URL{
		Scheme: c.scheme,
		Host:   domain,
		Path:   "/" + c.apiVersion + "/" + resourcePath,
	}
	return u.String()
}

// Upload sends every readable, non-empty artifact as one multipart POST.
// It returns a NoOp result without any network call when nothing is left to send.
func (c *Client) Upload(ctx context.Context, artifacts []models.SymbolArtifact, creds models.Credentials, domain string) (models.UploadResult, error) {
	if err := ValidateCredentials(creds); err != nil {
		return models.UploadResult{}, err
	}
	if strings.TrimSpace(domain) == "" {
		return models.UploadResult{}, apperr.Validation("upload", "server domain not resolved")
	}

	files, parts, sent := openParts(artifacts)
	if len(files) == 0 {
		return models.UploadResult{Outcome: models.OutcomeNoOp}, nil
	}

	endpoint := c.Endpoint(domain)
	result := models.UploadResult{Outcome: models.OutcomeFailed, Endpoint: endpoint, Parts: parts, Sent: sent}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := writeParts(mw, files)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	defer func() {
		_ = pr.Close()
		<-done
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return result, apperr.Transport("upload", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(HeaderAppID, creds.AppID)
	req.Header.Set(HeaderAppKey, creds.AppKey)

	slog.Debug("uploading symbol files", "endpoint", endpoint, "parts", len(parts))
	resp, err := c.http.Do(req)
	if err != nil {
		return result, apperr.Transport("upload", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	result.Status = resp.StatusCode
	result.Body = string(body)
	if err != nil {
		return result, apperr.Transport("upload", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && result.Body == SuccessBody {
		result.Outcome = models.OutcomeSuccess
		return result, nil
	}
	return result, apperr.Server("upload", resp.StatusCode, result.Body)
}

// ValidateCredentials checks that both the application id and key are present.
func ValidateCredentials(creds models.Credentials) error {
	if strings.TrimSpace(creds.AppID) == "" {
		return apperr.Validation("upload", "application id not found")
	}
	if strings.TrimSpace(creds.AppKey) == "" {
		return apperr.Validation("upload", "application key not found")
	}
	return nil
}

type partFile struct {
	field string
	name  string
	file  *os.File
}

// openParts rechecks every artifact on disk and opens the ones still valid.
// It returns the open files, their field names and the rechecked artifacts.
func openParts(artifacts []models.SymbolArtifact) ([]partFile, []string, []models.SymbolArtifact) {
	var (
		files  []partFile
		fields []string
		sent   []models.SymbolArtifact
	)
	for _, art := range artifacts {
		art = staging.Recheck(art)
		if !art.Valid() {
			continue
		}
		f, err := os.Open(art.Path)
		if err != nil {
			slog.Debug("skipping unreadable symbol file", "path", art.Path, "err", err)
			continue
		}
		field := models.PartField(art.Arch)
		files = append(files, partFile{field: field, name: staging.FileName(art), file: f})
		fields = append(fields, field)
		sent = append(sent, art)
	}
	return files, fields, sent
}

func writeParts(mw *multipart.Writer, files []partFile) error {
	defer func() {
		for _, p := range files {
			_ = p.file.Close()
		}
	}()
	for _, p := range files {
		w, err := mw.CreateFormFile(p.field, p.name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, p.file); err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	return nil
}
