package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// UploadObject stores the content under bucket/objectPath and returns the
// storage path usable with PublicURL.
func (c *Client) UploadObject(ctx context.Context, bucket, objectPath, contentType string, content io.Reader) (string, error) {
	if bucket == "" || objectPath == "" {
		return "", fmt.Errorf("upload object: bucket and path are required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/storage/v1/object/"+bucket+"/"+objectPath, content)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}

	c.applyHeaders(req, "")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("upload object: %w", c.decodeError(resp))
	}

	return bucket + "/" + objectPath, nil
}

// RemoveObjects deletes objects from a bucket by their paths (relative to
// the bucket).
func (c *Client) RemoveObjects(ctx context.Context, bucket string, paths []string) error {
	if bucket == "" || len(paths) == 0 {
		return nil
	}

	payload := map[string][]string{"prefixes": paths}
	if err := c.do(ctx, http.MethodDelete, "/storage/v1/object/"+bucket, nil, payload, nil); err != nil {
		return fmt.Errorf("remove objects: %w", err)
	}

	return nil
}

// PublicURL builds the public download URL for a storage path returned by
// UploadObject.
func (c *Client) PublicURL(storagePath string) string {
	if storagePath == "" {
		return ""
	}

	return c.baseURL + "/storage/v1/object/public/" + storagePath
}
