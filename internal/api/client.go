package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math/rand"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"oferta/internal"
	"oferta/internal/config"
)

var (
	ErrSessionExpired = errors.New("session expired")
	ErrInvalidToken   = errors.New("invalid token")
	ErrUnsupported    = errors.New("operation not offered by the api for this dataset")
)

// StatusError is a non-2xx answer carrying the server's detail text.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: status=%d detail=%s", e.Status, e.Detail)
}

type endpoints struct {
	list   string
	upload string
}

var domainEndpoints = map[internal.Domain]endpoints{
	internal.DomainCatalog:  {list: "programas_formacion/listar", upload: "catalogo/upload-excel-catalogo-programas/"},
	internal.DomainNorms:    {upload: "cargar_archivos/cargar-archivos"},
	internal.DomainHistoric: {list: "historico/obtener-todos"},
	internal.DomainRegistry: {list: "registro_calificado/registro_calificado/listar"},
}

const historyEndpoint = "cargar_archivos/historial"

const maxAttempts = 5

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg, http.DefaultTransport),
		limiter:    NewRateLimiter(cfg.APIRateLimitRPS),
	}
}

// newHTTPClient attaches the bearer token to every request sent through base.
func newHTTPClient(cfg config.Config, base http.RoundTripper) *http.Client {
	token := &oauth2.Token{AccessToken: strings.TrimSpace(cfg.APIToken), TokenType: "Bearer"}
	return &http.Client{
		Timeout: time.Duration(cfg.APITimeoutMs) * time.Millisecond,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(token),
			Base:   base,
		},
	}
}

// ListRecords fetches every row the api holds for d, as decoded JSON objects.
func (c *Client) ListRecords(ctx context.Context, d internal.Domain) ([]map[string]any, error) {
	ep, ok := domainEndpoints[d]
	if !ok || ep.list == "" {
		return nil, fmt.Errorf("list %s: %w", d, ErrUnsupported)
	}
	body, err := c.do(ctx, http.MethodGet, ep.list, nil, "")
	if err != nil {
		return nil, err
	}

	payload, err := decodeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d, err)
	}
	items := extractArrayPayload(payload)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if row, ok := item.(map[string]any); ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// UploadSpreadsheet posts a workbook as the multipart field "file".
func (c *Client) UploadSpreadsheet(ctx context.Context, d internal.Domain, filename string, content []byte) (json.RawMessage, error) {
	ep, ok := domainEndpoints[d]
	if !ok || ep.upload == "" {
		return nil, fmt.Errorf("upload %s: %w", d, ErrUnsupported)
	}

	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, http.MethodPost, ep.upload, buf.Bytes(), form.FormDataContentType())
	if err != nil {
		return nil, err
	}
	return asRawJSON(body), nil
}

// UploadHistory returns the server's log of uploaded norm files.
func (c *Client) UploadHistory(ctx context.Context) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, historyEndpoint, nil, "")
	if err != nil {
		return nil, err
	}
	return asRawJSON(body), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, contentType string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.APIToken) == "" {
		return nil, errors.New("missing OFERTA_API_TOKEN")
	}
	u := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, ErrSessionExpired
		case resp.StatusCode == http.StatusForbidden:
			return nil, ErrInvalidToken
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				lastErr = &StatusError{Status: resp.StatusCode, Detail: errorDetail(body)}
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				if err := sleepCtx(ctx, backoff); err != nil {
					return nil, err
				}
				continue
			}
			return nil, &StatusError{Status: resp.StatusCode, Detail: errorDetail(body)}
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("api request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// errorDetail prefers the "detail" then "message" member of a JSON error
// body; any other body is returned as text.
func errorDetail(body []byte) string {
	payload, err := decodeJSON(body)
	if err != nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			return text
		}
		return "request failed"
	}
	switch t := payload.(type) {
	case string:
		return t
	case map[string]any:
		for _, key := range []string{"detail", "message"} {
			if v, ok := t[key]; ok && v != nil {
				if s, ok := v.(string); ok {
					return s
				}
				blob, _ := json.Marshal(v)
				return string(blob)
			}
		}
	}
	return "request failed"
}

func decodeJSON(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func asRawJSON(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	blob, _ := json.Marshal(map[string]string{"detail": strings.TrimSpace(string(body))})
	return blob
}

var payloadKeys = []string{"data", "historico", "results", "items"}

// extractArrayPayload finds the row array in a list response. Known
// wrapper keys are searched first, then any other member, depth first.
func extractArrayPayload(payload any) []any {
	if arr, ok := payload.([]any); ok {
		return arr
	}
	if arr, ok := pickArray(payload); ok {
		return arr
	}
	return []any{}
}

func pickArray(v any) ([]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	visit := func(child any) ([]any, bool) {
		if arr, ok := child.([]any); ok {
			return arr, true
		}
		return pickArray(child)
	}
	for _, key := range payloadKeys {
		if child, ok := obj[key]; ok {
			if arr, ok := visit(child); ok {
				return arr, true
			}
		}
	}
	for _, key := range slices.Sorted(maps.Keys(obj)) {
		if arr, ok := visit(obj[key]); ok {
			return arr, true
		}
	}
	return nil, false
}
