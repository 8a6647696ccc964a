package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultRelayURL = "http://localhost:3001"
	RelayPath       = "/api/transcribe"
)

type Request struct {
	Credential string
	Language   string
	FileName   string
	Audio      io.Reader
}

// Transcriber turns one audio payload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

// UpstreamError is a non-2xx reply from the relay or the provider behind it.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

type RelayClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewRelayClient(baseURL string) *RelayClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultRelayURL
	}
	return &RelayClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *RelayClient) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + RelayPath
}

func (c *RelayClient) Transcribe(ctx context.Context, req Request) (string, error) {
	if req.Audio == nil {
		return "", errors.New("audio payload is required")
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(resp.StatusCode, payload, c.Endpoint()),
		}
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return result.Text, nil
}

func encodeForm(req Request) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	name := req.FileName
	if name == "" {
		name = "audio"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", audioContentType(name))

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, req.Audio); err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = DefaultLanguage
	}
	if err := w.WriteField("language", language); err != nil {
		return nil, "", fmt.Errorf("write language field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}

	return buf, w.FormDataContentType(), nil
}

func audioContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// upstreamMessage prefers the provider's {"error":{"message":...}}, then a
// relay-local {"error":"..."}, then a synthesized status message.
func upstreamMessage(status int, payload []byte, endpoint string) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Sprintf("transcription failed: HTTP %d; make sure the relay is running at %s", status, endpoint)
	}

	var detail struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil && strings.TrimSpace(detail.Message) != "" {
		return detail.Message
	}

	var plain string
	if err := json.Unmarshal(envelope.Error, &plain); err == nil && strings.TrimSpace(plain) != "" {
		return plain
	}

	return fmt.Sprintf("transcription failed: HTTP %d", status)
}
