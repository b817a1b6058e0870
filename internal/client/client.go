// Package client talks to the platos items API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/vbonduro/platos/internal/domain"
)

type Client struct {
	baseURL string
	client  *http.Client
}

// New returns a Client for the server at baseURL. With a nil httpClient a
// client with its own cookie jar is used so Login persists across calls.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{Jar: jar}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// Image is a file to upload with an item.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

type CreateFields struct {
	Title       string
	Description string
	Price       string
	Active      bool
	ImageURL    string
	Image       *Image
}

// UpdateFields sends only the non-nil fields. Unless Image, ImageURL or
// KeepImage is set the server clears the item's image.
type UpdateFields struct {
	Title       *string
	Description *string
	Price       *string
	Active      *bool
	ImageURL    string
	KeepImage   bool
	Image       *Image
}

// APIError is a non-2xx response. It matches the domain sentinel for its
// status code under errors.Is.
type APIError struct {
	StatusCode       int
	Message          string
	ValidationErrors map[string]string
}

func (e *APIError) Error() string {
	if len(e.ValidationErrors) > 0 {
		return fmt.Sprintf("platos api: %d %s %v", e.StatusCode, e.Message, e.ValidationErrors)
	}
	return fmt.Sprintf("platos api: %d %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case domain.ErrInvalidCredentials:
		return e.StatusCode == http.StatusUnauthorized
	case domain.ErrUpstream:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func (c *Client) List(ctx context.Context) ([]*domain.MenuItem, error) {
	var items []*domain.MenuItem
	err := c.do(ctx, http.MethodGet, "/items", nil, "", &items)
	return items, err
}

func (c *Client) ListActive(ctx context.Context) ([]*domain.MenuItem, error) {
	var items []*domain.MenuItem
	err := c.do(ctx, http.MethodGet, "/items-active", nil, "", &items)
	return items, err
}

func (c *Client) Get(ctx context.Context, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if err := c.do(ctx, http.MethodGet, itemPath(id), nil, "", &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) Create(ctx context.Context, f CreateFields) (*domain.MenuItem, error) {
	form := map[string]string{
		"title":       f.Title,
		"description": f.Description,
		"price":       f.Price,
		"active":      strconv.FormatBool(f.Active),
	}
	if f.ImageURL != "" {
		form["imageUrl"] = f.ImageURL
	}
	return c.sendItem(ctx, http.MethodPost, "/items", form, f.Image)
}

func (c *Client) Update(ctx context.Context, id string, f UpdateFields) (*domain.MenuItem, error) {
	form := map[string]string{}
	if f.Title != nil {
		form["title"] = *f.Title
	}
	if f.Description != nil {
		form["description"] = *f.Description
	}
	if f.Price != nil {
		form["price"] = *f.Price
	}
	if f.Active != nil {
		form["active"] = strconv.FormatBool(*f.Active)
	}
	if f.ImageURL != "" {
		form["imageUrl"] = f.ImageURL
	}
	if f.KeepImage {
		form["keepImage"] = "true"
	}
	return c.sendItem(ctx, http.MethodPut, itemPath(id), form, f.Image)
}

// Delete removes the item and returns the id the server confirmed.
func (c *Client) Delete(ctx context.Context, id string) (string, error) {
	var resp struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := c.do(ctx, http.MethodDelete, itemPath(id), nil, "", &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) ToggleActive(ctx context.Context, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if err := c.do(ctx, http.MethodPost, itemPath(id)+"/toggle", nil, "", &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return fmt.Errorf("failed to marshal login: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/auth/login", bytes.NewReader(payload), "application/json", nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, "", nil)
}

func (c *Client) sendItem(ctx context.Context, method, path string, form map[string]string, img *Image) (*domain.MenuItem, error) {
	body, contentType, err := encodeForm(form, img)
	if err != nil {
		return nil, err
	}
	var item domain.MenuItem
	if err := c.do(ctx, method, path, body, contentType, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error            string            `json:"error"`
		ValidationErrors map[string]string `json:"validationErrors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Error
		apiErr.ValidationErrors = body.ValidationErrors
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func encodeForm(fields map[string]string, img *Image) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if img != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, img.Filename))
		ct := img.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write image: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

func itemPath(id string) string {
	return "/items/" + url.PathEscape(id)
}
