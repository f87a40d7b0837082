// Package download fetches policy documents from presigned URLs and
// stages them on local disk for the duration of a run.
package download

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clauseq/clauseq/internal/infrastructure/storage/localfs"
)

type Fetcher struct {
	storage    *localfs.Storage
	httpClient *http.Client
}

func New(storage *localfs.Storage) *Fetcher {
	return &Fetcher{
		storage:    storage,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Fetch downloads url into scratch storage and returns the staged path
// plus a cleanup callback that removes the file.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("download document status: %s", resp.Status)
	}

	key := uuid.NewString() + extensionFor(resp.Header.Get("Content-Type"))
	path, err := f.storage.Save(ctx, key, resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("stage document: %w", err)
	}

	cleanup := func() {
		_ = f.storage.Remove(context.Background(), key)
	}
	return path, cleanup, nil
}

// extensionFor maps the upstream Content-Type to the file extension
// downstream tooling expects. Unknown types default to .pdf since that
// is what policy blobs almost always are.
func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".pdf"
	}
	switch strings.ToLower(mediaType) {
	case "application/pdf":
		return ".pdf"
	case "application/msword":
		return ".doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "message/rfc822":
		return ".eml"
	case "application/vnd.ms-outlook", "application/x-ole-storage":
		return ".msg"
	case "text/plain":
		return ".txt"
	default:
		return ".pdf"
	}
}
