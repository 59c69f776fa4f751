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
	"strings"
	"time"

	"github.com/terra-clan/library-dashboard/internal/models"
)

// Client is a Go SDK for the eLibrary backend API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new eLibrary client. baseURL is the backend origin,
// e.g. "http://localhost:8080".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is returned for non-2xx backend responses
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// UploadRequest describes a file upload
type UploadRequest struct {
	FileName    string
	File        io.Reader
	Title       string
	Description string
	Tags        []string
}

// ListDocuments retrieves all documents in backend form
func (c *Client) ListDocuments(ctx context.Context) ([]*Document, error) {
	var docs []*Document
	if err := c.getJSON(ctx, "/api/documents", &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// FetchAllDocuments retrieves all documents projected for the dashboard
func (c *Client) FetchAllDocuments(ctx context.Context) ([]models.Document, error) {
	docs, err := c.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	return ToModels(docs, time.Now()), nil
}

// SearchByTag runs the backend tag search and projects the result
func (c *Client) SearchByTag(ctx context.Context, tag string) ([]models.Document, error) {
	var docs []*Document
	path := "/api/documents/search?tag=" + url.QueryEscape(tag)
	if err := c.getJSON(ctx, path, &docs); err != nil {
		return nil, err
	}
	return ToModels(docs, time.Now()), nil
}

// GetDocument retrieves a document by ID
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := c.getJSON(ctx, "/api/documents/"+url.PathEscape(id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument removes a document
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/documents/"+url.PathEscape(id), nil, "")
	return err
}

// UploadDocument uploads a file with its metadata as multipart form data
func (c *Client) UploadDocument(ctx context.Context, req UploadRequest) (*Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, req.File); err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}

	fields := map[string]string{
		"title":       req.Title,
		"description": req.Description,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	for _, tag := range req.Tags {
		if err := mw.WriteField("tags", tag); err != nil {
			return nil, fmt.Errorf("failed to write tag: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/documents/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(resp, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &doc, nil
}

// ListTags retrieves all tags
func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := c.getJSON(ctx, "/api/tags", &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateTag creates a new tag
func (c *Client) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	if err := c.postJSON(ctx, "/api/tags", models.Tag{Name: name}, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListUsers retrieves all users
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.getJSON(ctx, "/api/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListComments retrieves the comments of a document
func (c *Client) ListComments(ctx context.Context, documentID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.getJSON(ctx, commentsPath(documentID), &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// AddComment attaches a comment to a document
func (c *Client) AddComment(ctx context.Context, documentID string, comment models.Comment) (*models.Comment, error) {
	var created models.Comment
	if err := c.postJSON(ctx, commentsPath(documentID), comment, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DownloadFile fetches the content behind a document's fileUrl
func (c *Client) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ResolveFileURL(fileURL), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// ResolveFileURL turns a backend-relative file path into an absolute URL
func (c *Client) ResolveFileURL(fileURL string) string {
	switch {
	case strings.HasPrefix(fileURL, "http://"), strings.HasPrefix(fileURL, "https://"):
		return fileURL
	case strings.HasPrefix(fileURL, "/uploads/"):
		return c.baseURL + fileURL
	default:
		return c.baseURL + "/uploads/" + strings.TrimLeft(fileURL, "/")
	}
}

// Health checks if the backend is reachable
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/api/tags", nil, "")
	return err
}

// HealthCheck makes the client usable as a health.Checker
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Health(ctx)
}

func commentsPath(documentID string) string {
	return fmt.Sprintf("/api/documents/%s/comments", url.PathEscape(documentID))
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request against the backend
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
