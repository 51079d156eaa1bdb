// Package agent talks to the file editing agent service over HTTP.
package agent

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
	"net/url"
	"path/filepath"
	"strings"

	internalstrings "github.com/amonks/fileagent/internal/strings"
)

const (
	opUpload   = "upload"
	opPrompt   = "prompt"
	opDownload = "download"
	opFiles    = "files"

	maxErrorBody = 64 << 10
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// URL is the service base URL or address.
	URL string
	// HTTPClient performs requests. Defaults to a client without a timeout;
	// callers bound calls through the request context.
	HTTPClient *http.Client
}

// Client calls the agent service. It never retries.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the given address or URL.
func NewClient(addr string) *Client {
	return NewClientWithOptions(ClientOptions{URL: addr})
}

// NewClientWithOptions creates a client from options.
func NewClientWithOptions(opts ClientOptions) *Client {
	baseURL := internalstrings.TrimTrailingSlash(strings.TrimSpace(opts.URL))
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, client: httpClient}
}

// BaseURL returns the normalized service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload sends a project archive and returns the new session.
func (c *Client) Upload(ctx context.Context, name string, archive []byte) (UploadResult, error) {
	if len(archive) == 0 {
		return UploadResult{}, validationError("archive is empty")
	}
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "project.zip"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return UploadResult{}, &TransportError{Op: opUpload, Err: err}
	}
	if _, err := part.Write(archive); err != nil {
		return UploadResult{}, &TransportError{Op: opUpload, Err: err}
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, &TransportError{Op: opUpload, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return UploadResult{}, &TransportError{Op: opUpload, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var response uploadResponse
	if err := c.doJSON(req, opUpload, &response); err != nil {
		return UploadResult{}, err
	}
	if internalstrings.IsBlank(response.SessionID) {
		return UploadResult{}, &TransportError{Op: opUpload, Err: errors.New("response is missing session_id")}
	}
	return UploadResult{
		SessionID: response.SessionID,
		Files:     flattenTree(response.FileTree),
		Message:   response.Message,
	}, nil
}

// SubmitInstruction sends a natural-language instruction for a session.
// Blank instructions are rejected without a network call.
func (c *Client) SubmitInstruction(ctx context.Context, sessionID, text string) (InstructionResult, error) {
	sessionID, err := requiredTrimmed(sessionID, "session id")
	if err != nil {
		return InstructionResult{}, err
	}
	if _, err := requiredTrimmed(text, "instruction"); err != nil {
		return InstructionResult{}, err
	}

	payload, err := json.Marshal(promptRequest{Prompt: text})
	if err != nil {
		return InstructionResult{}, &TransportError{Op: opPrompt, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sessionURL("/prompt/", sessionID), bytes.NewReader(payload))
	if err != nil {
		return InstructionResult{}, &TransportError{Op: opPrompt, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var response promptResponse
	if err := c.doJSON(req, opPrompt, &response); err != nil {
		return InstructionResult{}, err
	}
	return InstructionResult{
		Files:   flattenTree(response.FileTree),
		Message: response.Message,
	}, nil
}

// Files returns the current listing for a session.
func (c *Client) Files(ctx context.Context, sessionID string) ([]string, error) {
	sessionID, err := requiredTrimmed(sessionID, "session id")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionURL("/files/", sessionID), nil)
	if err != nil {
		return nil, &TransportError{Op: opFiles, Err: err}
	}

	var response filesResponse
	if err := c.doJSON(req, opFiles, &response); err != nil {
		return nil, err
	}
	return flattenTree(response.FileTree), nil
}

// Download fetches the current project archive for a session.
func (c *Client) Download(ctx context.Context, sessionID string) (Archive, error) {
	sessionID, err := requiredTrimmed(sessionID, "session id")
	if err != nil {
		return Archive{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionURL("/download/", sessionID), nil)
	if err != nil {
		return Archive{}, &TransportError{Op: opDownload, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Archive{}, &TransportError{Op: opDownload, Err: err}
	}
	defer resp.Body.Close()
	if !isSuccess(resp.StatusCode) {
		return Archive{}, readErrorResponse(opDownload, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Archive{}, &TransportError{Op: opDownload, Err: err}
	}
	return Archive{
		Filename: attachmentFilename(resp.Header.Get("Content-Disposition"), sessionID),
		Data:     data,
	}, nil
}

func (c *Client) sessionURL(prefix, sessionID string) string {
	return c.baseURL + prefix + url.PathEscape(sessionID)
}

func (c *Client) doJSON(req *http.Request, op string, dest any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if !isSuccess(resp.StatusCode) {
		return readErrorResponse(op, resp)
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func readErrorResponse(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := detailText(body)
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	return &ServiceError{Op: op, StatusCode: resp.StatusCode, Detail: detail}
}

func attachmentFilename(header, sessionID string) string {
	fallback := fmt.Sprintf("project_%s.zip", sessionID)
	if header == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return fallback
	}
	name := filepath.Base(strings.TrimSpace(params["filename"]))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return fallback
	}
	return name
}
