// Package cloud talks to the object-storage REST API that holds user
// backups and preferences.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

const listLimit = 100

// Object is one stored file as reported by the list endpoint.
type Object struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Key       string         `json:"key"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

func (c *Client) objectURL(bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, url.PathEscape(bucket), escapeKey(key))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// Upload stores body under key, replacing any existing object.
func (c *Client) Upload(ctx context.Context, token, bucket, key, contentType string, body io.Reader) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.objectURL(bucket, key), token, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.do(req, "upload")
	if err != nil {
		return err
	}
	resp.Body.Close()
	log.Info("[Cloud] Uploaded %s/%s", bucket, key)
	return nil
}

// List returns objects under prefix, newest first.
func (c *Client) List(ctx context.Context, token, bucket, prefix string) ([]Object, error) {
	payload, err := json.Marshal(map[string]any{
		"prefix": prefix,
		"limit":  listLimit,
		"offset": 0,
		"sortBy": map[string]string{"column": "created_at", "order": "desc"},
	})
	if err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%s/storage/v1/object/list/%s", c.baseURL, url.PathEscape(bucket))
	req, err := c.newRequest(ctx, http.MethodPost, target, token, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, "list")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var objects []Object
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return nil, apperror.Wrap(err, apperror.KindNetwork, "invalid list response")
	}
	dir := strings.TrimSuffix(prefix, "/")
	for i := range objects {
		if dir == "" {
			objects[i].Key = objects[i].Name
		} else {
			objects[i].Key = dir + "/" + objects[i].Name
		}
	}
	return objects, nil
}

// Download opens the object at key. The caller closes the reader.
func (c *Client) Download(ctx context.Context, token, bucket, key string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.objectURL(bucket, key), token, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, "download")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) Delete(ctx context.Context, token, bucket, key string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.objectURL(bucket, key), token, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req, "delete")
	if err != nil {
		return err
	}
	resp.Body.Close()
	log.Info("[Cloud] Deleted %s/%s", bucket, key)
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, target, token string, body io.Reader) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, apperror.New(apperror.KindUnsupported, "cloud storage is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindInvalid, "invalid storage request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	return req, nil
}

// do sends req and turns non-2xx answers into errors carrying the body.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindNetwork, op+" failed")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	kind := apperror.KindNetwork
	if resp.StatusCode == http.StatusNotFound || isNotFoundBody(body) {
		kind = apperror.KindNotFound
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return nil, apperror.Newf(kind, "%s failed: %s", op, msg).WithContext("status", resp.StatusCode)
}

// isNotFoundBody recognizes the storage API's 400 "not_found" answers.
func isNotFoundBody(body []byte) bool {
	var payload struct {
		Error      string `json:"error"`
		StatusCode string `json:"statusCode"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	return payload.Error == "not_found" || payload.StatusCode == "404"
}
