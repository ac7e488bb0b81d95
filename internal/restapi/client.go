// Package restapi is the client for the chat API's REST surface: the room
// directory and the image upload/retrieval endpoints.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the REST API. Failures are surfaced per call; there is no
// automatic retry here (the image resolver layers its own on top).
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

// NewClient builds a client for the API rooted at baseURL
// (e.g. https://api.tools.gavago.fr/socketio/api).
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		session: NewSession(token),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if err := c.session.Check(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("restapi: %s %s returned HTTP %d", method, path, resp.StatusCode)
	}
	return resp, nil
}

// Rooms fetches the raw directory response. The body shape varies between
// server versions, so parsing is left to the directory package.
func (c *Client) Rooms(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/rooms", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// CreateRoom asks the server to create a room by name. The endpoint is a
// plain GET with the name in the query, as the API defines it.
func (c *Client) CreateRoom(ctx context.Context, name string) error {
	resp, err := c.do(ctx, http.MethodGet, "/rooms/create?name="+url.QueryEscape(name), nil)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

type uploadRequest struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

type uploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// UploadImage stores an image payload under the given id and returns the
// stable URL the server will serve it from.
func (c *Client) UploadImage(ctx context.Context, id, payload string) (string, error) {
	body, err := json.Marshal(uploadRequest{ID: id, Image: payload})
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, http.MethodPost, "/image", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("restapi: bad upload response: %w", err)
	}
	if !out.Success || out.URL == "" {
		return "", fmt.Errorf("restapi: upload of %q refused", id)
	}
	return out.URL, nil
}

type imageResponse struct {
	Success   bool   `json:"success"`
	DataImage string `json:"data_image"`
}

// FetchImage retrieves an uploaded image payload by id.
func (c *Client) FetchImage(ctx context.Context, id string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/image/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("restapi: bad image response: %w", err)
	}
	if !out.Success || out.DataImage == "" {
		return "", fmt.Errorf("restapi: image %q not available", id)
	}
	return out.DataImage, nil
}
