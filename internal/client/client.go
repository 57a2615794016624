// Package client is the REST consumer of the PIS record store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pis-platform/pis/internal/config"
	"github.com/pis-platform/pis/internal/records"
)

// APIVersion is the record store API version this client speaks
const APIVersion = "1.0.0"

// TokenSource supplies the bearer token for each request
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token
type StaticToken string

// Token implements TokenSource
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Client calls the record store API. OnUnauthorized runs on every 401 so
// the owner can force a sign-out.
type Client struct {
	BaseURL        string
	HTTP           *http.Client
	Tokens         TokenSource
	OnUnauthorized func(Reason)
}

// New builds a client for baseURL, which includes the /api prefix
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Tokens:  tokens,
	}
}

// NewFromConfig builds a client from PIS_* settings
func NewFromConfig(cfg *config.ClientConfig) *Client {
	return New(cfg.APIURL, StaticToken(cfg.AccessToken))
}

// PropertyQuery selects a page of properties
type PropertyQuery struct {
	Page    int
	PerPage int
	Search  string
	Active  *bool
}

// PropertyPage is one page of properties with nested collections
type PropertyPage struct {
	Properties []records.Row
	Page       int
	PerPage    int
	Total      int64
}

// Photo is a stored property photo
type Photo struct {
	PhotoID       uint64    `json:"photo_id"`
	PropertyYardi string    `json:"property_yardi"`
	PhotoURL      string    `json:"photo_url"`
	Caption       string    `json:"caption"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryEntry is one edit-history record
type HistoryEntry struct {
	ID         uint64    `json:"id"`
	EditedAt   time.Time `json:"edited_at"`
	EditedBy   string    `json:"edited_by"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Field      string    `json:"field"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
}

// ListProperties handles GET /properties
func (c *Client) ListProperties(ctx context.Context, q PropertyQuery) (*PropertyPage, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Active != nil {
		params.Set("active", strconv.FormatBool(*q.Active))
	}

	var body struct {
		Properties []map[string]any `json:"properties"`
		Page       int              `json:"page"`
		PerPage    int              `json:"per_page"`
		Total      int64            `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/properties", params), nil, &body); err != nil {
		return nil, err
	}
	return &PropertyPage{
		Properties: records.FromMaps(records.KindProperty, body.Properties),
		Page:       body.Page,
		PerPage:    body.PerPage,
		Total:      body.Total,
	}, nil
}

// GetProperty handles GET /properties/{yardi}
func (c *Client) GetProperty(ctx context.Context, yardi string) (records.Row, error) {
	var body map[string]any
	if err := c.do(ctx, http.MethodGet, "/properties/"+url.PathEscape(yardi), nil, &body); err != nil {
		return records.Row{}, err
	}
	return records.NewRow(records.KindProperty, body), nil
}

// CreateProperty handles POST /properties
func (c *Client) CreateProperty(ctx context.Context, fields map[string]any) (records.Row, error) {
	var body map[string]any
	if err := c.do(ctx, http.MethodPost, "/properties", fields, &body); err != nil {
		return records.Row{}, err
	}
	return records.NewRow(records.KindProperty, body), nil
}

// UpdateProperty handles PUT /properties/{yardi}
func (c *Client) UpdateProperty(ctx context.Context, yardi string, fields map[string]any) (records.Row, error) {
	var body struct {
		Message  string         `json:"message"`
		Property map[string]any `json:"property"`
	}
	if err := c.do(ctx, http.MethodPut, "/properties/"+url.PathEscape(yardi), fields, &body); err != nil {
		return records.Row{}, err
	}
	return records.NewRow(records.KindProperty, body.Property), nil
}

// List returns a property's rows of one section kind
func (c *Client) List(ctx context.Context, kind records.Kind, yardi string) ([]records.Row, error) {
	if err := sectionKind(kind); err != nil {
		return nil, err
	}
	params := url.Values{}
	if yardi != "" {
		params.Set("property_yardi", yardi)
	}
	var body []map[string]any
	if err := c.do(ctx, http.MethodGet, withQuery("/"+kind.Section(), params), nil, &body); err != nil {
		return nil, err
	}
	return records.FromMaps(kind, body), nil
}

// Get returns one row
func (c *Client) Get(ctx context.Context, kind records.Kind, id string) (records.Row, error) {
	if err := realID(kind, id); err != nil {
		return records.Row{}, err
	}
	var body map[string]any
	if err := c.do(ctx, http.MethodGet, "/"+kind.Section()+"/"+url.PathEscape(id), nil, &body); err != nil {
		return records.Row{}, err
	}
	return records.NewRow(kind, body), nil
}

// Create posts a new row and returns the stored entity
func (c *Client) Create(ctx context.Context, kind records.Kind, payload map[string]any) (records.Row, error) {
	if err := sectionKind(kind); err != nil {
		return records.Row{}, err
	}
	var body map[string]any
	if err := c.do(ctx, http.MethodPost, "/"+kind.Section(), payload, &body); err != nil {
		return records.Row{}, err
	}
	return records.NewRow(kind, body), nil
}

// Update puts the full payload for an existing row
func (c *Client) Update(ctx context.Context, kind records.Kind, id string, payload map[string]any) (records.Row, error) {
	if err := realID(kind, id); err != nil {
		return records.Row{}, err
	}
	var body map[string]any
	if err := c.do(ctx, http.MethodPut, "/"+kind.Section()+"/"+url.PathEscape(id), payload, &body); err != nil {
		return records.Row{}, err
	}
	return records.NewRow(kind, body), nil
}

// Delete removes an existing row
func (c *Client) Delete(ctx context.Context, kind records.Kind, id string) error {
	if err := realID(kind, id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/"+kind.Section()+"/"+url.PathEscape(id), nil, nil)
}

// UploadPhoto sends a photo file and returns its public URL
func (c *Client) UploadPhoto(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := c.send(ctx, http.MethodPost, "/property-photos/upload", &buf, w.FormDataContentType(), &body); err != nil {
		return "", err
	}
	return body.URL, nil
}

// CreatePhoto associates an uploaded photo URL with a property
func (c *Client) CreatePhoto(ctx context.Context, yardi, photoURL, caption string) (*Photo, error) {
	var photo Photo
	payload := map[string]any{"property_yardi": yardi, "photo_url": photoURL, "caption": caption}
	if err := c.do(ctx, http.MethodPost, "/property-photos", payload, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

// ListPhotos returns a property's photos
func (c *Client) ListPhotos(ctx context.Context, yardi string) ([]Photo, error) {
	photos := make([]Photo, 0)
	if err := c.do(ctx, http.MethodGet, "/property-photos/"+url.PathEscape(yardi), nil, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// DeletePhoto removes a photo and its stored file
func (c *Client) DeletePhoto(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, "/property-photos/"+strconv.FormatUint(id, 10), nil, nil)
}

// EditHistory returns up to limit entries, newest first. Zero uses the
// server default.
func (c *Client) EditHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var body struct {
		EditHistory []HistoryEntry `json:"edit_history"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/edit-history", params), nil, &body); err != nil {
		return nil, err
	}
	return body.EditHistory, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, body, contentType, out)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Version", APIVersion)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Tokens != nil {
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)
		if apiErr.Status == http.StatusUnauthorized && c.OnUnauthorized != nil {
			c.OnUnauthorized(apiErr.Reason())
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

func sectionKind(kind records.Kind) error {
	if !kind.Valid() || kind == records.KindProperty {
		return fmt.Errorf("not a section kind: %q", kind)
	}
	return nil
}

// realID refuses temporary ids so they never reach the store as a target
func realID(kind records.Kind, id string) error {
	if err := sectionKind(kind); err != nil {
		return err
	}
	if id == "" || records.IsTemp(id) {
		return fmt.Errorf("%s id %q has not been saved", kind, id)
	}
	return nil
}
