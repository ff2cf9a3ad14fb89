package dropbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/mamadbah2/medpos/internal/config"
)

const tokenURL = "https://api.dropbox.com/oauth2/token"

// ErrPathNotFound is returned when the requested path does not exist.
var ErrPathNotFound = errors.New("dropbox: path not found")

// ErrPathConflict is returned when a folder or file already exists at the path.
var ErrPathConflict = errors.New("dropbox: path conflict")

// Client exposes the Dropbox file operations used by the application.
type Client interface {
	CreateFolder(ctx context.Context, path string) error
	Download(ctx context.Context, path string) ([]byte, error)
	Upload(ctx context.Context, path string, data []byte) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	api     *resty.Client
	content *resty.Client
}

// NewClient builds a Dropbox client. The long-lived refresh token is exchanged for
// short-lived access tokens on demand.
func NewClient(ctx context.Context, cfg config.DropboxConfig) *APIClient {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.AppKey,
		ClientSecret: cfg.AppSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	source := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	return NewClientWithHTTP(oauth2.NewClient(ctx, source), cfg.APIURL, cfg.ContentURL)
}

// NewClientWithHTTP builds a client on top of an already authenticated http.Client.
func NewClientWithHTTP(httpClient *http.Client, apiURL, contentURL string) *APIClient {
	return &APIClient{
		api: resty.NewWithClient(httpClient).
			SetBaseURL(strings.TrimSuffix(apiURL, "/")).
			SetTimeout(30 * time.Second),
		content: resty.NewWithClient(httpClient).
			SetBaseURL(strings.TrimSuffix(contentURL, "/")).
			SetTimeout(60 * time.Second),
	}
}

// apiError mirrors the error body Dropbox returns with HTTP 409.
type apiError struct {
	ErrorSummary string `json:"error_summary"`
}

// CreateFolder creates a folder at path.
func (c *APIClient) CreateFolder(ctx context.Context, path string) error {
	resp, err := c.api.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"path": path, "autorename": false}).
		Post("/2/files/create_folder_v2")
	if err != nil {
		return fmt.Errorf("create dropbox folder %s: %w", path, err)
	}

	return checkResponse(resp, "create_folder_v2")
}

// Download returns the content of the file at path.
func (c *APIClient) Download(ctx context.Context, path string) ([]byte, error) {
	arg, err := apiArg(map[string]any{"path": path})
	if err != nil {
		return nil, err
	}

	resp, err := c.content.R().
		SetContext(ctx).
		SetHeader("Dropbox-API-Arg", arg).
		Post("/2/files/download")
	if err != nil {
		return nil, fmt.Errorf("download dropbox file %s: %w", path, err)
	}

	if err := checkResponse(resp, "download"); err != nil {
		return nil, err
	}

	return resp.Body(), nil
}

// Upload writes data to path, overwriting any existing file.
func (c *APIClient) Upload(ctx context.Context, path string, data []byte) error {
	arg, err := apiArg(map[string]any{"path": path, "mode": "overwrite", "mute": true})
	if err != nil {
		return err
	}

	resp, err := c.content.R().
		SetContext(ctx).
		SetHeader("Dropbox-API-Arg", arg).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data).
		Post("/2/files/upload")
	if err != nil {
		return fmt.Errorf("upload dropbox file %s: %w", path, err)
	}

	return checkResponse(resp, "upload")
}

// checkResponse maps endpoint-specific 409 errors onto sentinel errors. Content
// endpoints answer errors as JSON too, so the body is decoded here rather than via SetError.
func checkResponse(resp *resty.Response, endpoint string) error {
	if !resp.IsError() {
		return nil
	}

	var apiErr apiError
	if resp.StatusCode() == http.StatusConflict && json.Unmarshal(resp.Body(), &apiErr) == nil {
		summary := apiErr.ErrorSummary
		switch {
		case strings.Contains(summary, "not_found"):
			return fmt.Errorf("%w: %s", ErrPathNotFound, summary)
		case strings.Contains(summary, "conflict"):
			return fmt.Errorf("%w: %s", ErrPathConflict, summary)
		}
	}

	return fmt.Errorf("dropbox %s error: status=%d, body=%s", endpoint, resp.StatusCode(), strings.TrimSpace(resp.String()))
}

// apiArg encodes the Dropbox-API-Arg header. HTTP headers must stay ASCII, so any
// non-ASCII rune is escaped the way Dropbox expects.
func apiArg(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode dropbox api arg: %w", err)
	}

	var b strings.Builder
	for _, r := range string(raw) {
		if r < 0x7f {
			b.WriteRune(r)
			continue
		}
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			fmt.Fprintf(&b, "\\u%04x\\u%04x", r1, r2)
			continue
		}
		fmt.Fprintf(&b, "\\u%04x", r)
	}
	return b.String(), nil
}
