package noark

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

type uploadResponse struct {
	ID string `json:"id"`
}

// Upload streams r to the archive as a file called name and returns the id
// of the stored file, for use as Dokumentversjon.Dokumentfil.
// Uploads are not retried since r cannot be replayed.
func (c *Client) Upload(ctx context.Context, r io.Reader, name string) (string, error) {
	resp, err := c.do(ctx, opUpload, "/upload", false, func(ctx context.Context, url string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, r)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upload %s: decode response: %w", name, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("upload %s: response has no file id", name)
	}

	c.logger.Debug().Str("file", name).Str("id", out.ID).Msg("File uploaded")
	return out.ID, nil
}

// UploadFile uploads the file at path under its base name.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return c.Upload(ctx, f, filepath.Base(path))
}

// Download writes the content of the stored file id to w and returns the
// number of bytes written.
func (c *Client) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, opDownload, "/download/"+url.PathEscape(id), true, func(ctx context.Context, url string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/octet-stream")
		return req, nil
	})
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", id, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", id, err)
	}

	c.logger.Debug().Str("id", id).Int64("bytes", n).Msg("File downloaded")
	return n, nil
}
