package execution

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"codehub/internal/config"
)

// Result is a decoded Judge0 submission result.
type Result struct {
	Stdout            string
	Stderr            string
	CompileOutput     string
	StatusID          int
	StatusDescription string
	Time              string
	Memory            int
}

// ExitCode derives a conventional exit code from the Judge0 status.
// Status 3 is "Accepted"; anything else ran but failed somehow.
func (r *Result) ExitCode() int {
	if r.StatusID == 3 {
		return 0
	}
	return 1
}

type submissionRequest struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin,omitempty"`
}

type submissionResponse struct {
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compile_output"`
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Time   string `json:"time"`
	Memory int    `json:"memory"`
}

// Client submits code to the Judge0 execution API. The keyed primary
// endpoint is tried first; on any failure the public unauthenticated
// endpoint is used as fallback.
type Client struct {
	primaryURL string
	apiKey     string
	apiHost    string
	publicURL  string
	http       *http.Client
}

func NewClient(cfg *config.ExecutionConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		primaryURL: cfg.PrimaryURL,
		apiKey:     cfg.APIKey,
		apiHost:    cfg.APIHost,
		publicURL:  cfg.PublicURL,
		http:       &http.Client{Timeout: timeout},
	}
}

// Run executes a submission and waits for the result.
func (c *Client) Run(ctx context.Context, languageID int, code, stdin string) (*Result, error) {
	if c.apiKey != "" {
		result, err := c.submit(ctx, c.primaryURL, true, languageID, code, stdin)
		if err == nil {
			return result, nil
		}
		slog.Warn("Primary execution endpoint failed, trying fallback", "error", err)
	}

	result, err := c.submit(ctx, c.publicURL, false, languageID, code, stdin)
	if err != nil {
		return nil, fmt.Errorf("execution service unavailable: %w", err)
	}
	return result, nil
}

func (c *Client) submit(ctx context.Context, baseURL string, keyed bool, languageID int, code, stdin string) (*Result, error) {
	payload := submissionRequest{
		LanguageID: languageID,
		SourceCode: base64.StdEncoding.EncodeToString([]byte(code)),
		Stdin:      base64.StdEncoding.EncodeToString([]byte(stdin)),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := baseURL + "/submissions?base64_encoded=true&wait=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if keyed {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		req.Header.Set("X-RapidAPI-Host", c.apiHost)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("execution API returned %d: %s", resp.StatusCode, string(raw))
	}

	var decoded submissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode execution response: %w", err)
	}

	return &Result{
		Stdout:            decodeBase64(decoded.Stdout),
		Stderr:            decodeBase64(decoded.Stderr),
		CompileOutput:     decodeBase64(decoded.CompileOutput),
		StatusID:          decoded.Status.ID,
		StatusDescription: decoded.Status.Description,
		Time:              decoded.Time,
		Memory:            decoded.Memory,
	}, nil
}

func decodeBase64(s string) string {
	if s == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some deployments return plain text on error paths.
		return s
	}
	return string(decoded)
}
