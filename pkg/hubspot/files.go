package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/hotelbdd/agente-bdd/internal/resilience"
)

// UploadFile uploads a file to the File Manager and returns its public URL.
// Used to attach call recordings to Call engagements.
func (c *httpClient) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "hubspot: rate limit wait")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", eris.Wrap(err, "hubspot: create multipart file")
	}
	if _, err := part.Write(data); err != nil {
		return "", eris.Wrap(err, "hubspot: write file data")
	}
	if err := writer.WriteField("options", `{"access":"PUBLIC_NOT_INDEXABLE"}`); err != nil {
		return "", eris.Wrap(err, "hubspot: write upload options")
	}
	if err := writer.WriteField("folderPath", "/call-recordings"); err != nil {
		return "", eris.Wrap(err, "hubspot: write folder path")
	}
	if err := writer.Close(); err != nil {
		return "", eris.Wrap(err, "hubspot: close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/v3/files", &buf)
	if err != nil {
		return "", eris.Wrap(err, "hubspot: create upload request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "hubspot: send upload request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "hubspot: read upload response")
	}

	if resp.StatusCode >= 400 {
		apiErr := eris.Errorf("hubspot: file upload returned %d: %s", resp.StatusCode, string(respBody))
		if resilience.RetryableStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return "", apiErr
	}

	var uploaded struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(respBody, &uploaded); err != nil {
		return "", eris.Wrap(err, "hubspot: unmarshal upload response")
	}
	return uploaded.URL, nil
}
