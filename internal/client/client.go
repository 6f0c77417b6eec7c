// Package client provides a Go client for the mini-blog API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrAlreadyRegistered is returned when the username is taken.
var ErrAlreadyRegistered = errors.New("already registered")

// Client is a mini-blog API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	TokenExp   time.Time
}

// New creates a new mini-blog client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Post represents a post from the API.
type Post struct {
	ID    int64  `json:"id"`
	Body  string `json:"body"`
	Owner string `json:"owner"`
}

// Comment represents a comment from the API.
type Comment struct {
	ID     int64  `json:"id"`
	Body   string `json:"body"`
	PostID int64  `json:"post_id"`
	Owner  string `json:"owner"`
}

// PostWithComments is the nested read returned by GetPost.
type PostWithComments struct {
	Post
	Comments []Comment `json:"comments"`
}

// Stats holds the site counters returned by GetStats.
type Stats struct {
	Users    int64 `json:"users"`
	Posts    int64 `json:"posts"`
	Comments int64 `json:"comments"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Error       string    `json:"error"`
}

// Register creates an account and stores the returned bearer token on the client.
func (c *Client) Register(username, password string) error {
	reqBody := map[string]string{"username": username, "password": password}
	body, _ := json.Marshal(reqBody)

	resp, err := c.HTTPClient.Post(c.BaseURL+"/register", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return ErrAlreadyRegistered
	}
	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("register failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var result tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	c.Token = result.AccessToken
	c.TokenExp = result.ExpiresAt
	return nil
}

// Login exchanges credentials for a fresh bearer token via the form endpoint.
func (c *Client) Login(username, password string) error {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := c.HTTPClient.Post(c.BaseURL+"/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("login failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var result tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	c.Token = result.AccessToken
	c.TokenExp = result.ExpiresAt
	return nil
}

// RegisterOrLogin registers the account, falling back to login when it already exists.
func (c *Client) RegisterOrLogin(username, password string) error {
	err := c.Register(username, password)
	if errors.Is(err, ErrAlreadyRegistered) {
		return c.Login(username, password)
	}
	return err
}

// IsAuthenticated returns true if the client has an unexpired token.
func (c *Client) IsAuthenticated() bool {
	return c.Token != "" && time.Now().Before(c.TokenExp)
}

// doRequest performs an authenticated HTTP request.
func (c *Client) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTPClient.Do(req)
}

// CreatePost creates a new post.
func (c *Client) CreatePost(body string) (*Post, error) {
	resp, err := c.doRequest(http.MethodPost, "/post", map[string]string{"body": body})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("create post failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var post Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreateComment comments on an existing post.
func (c *Client) CreateComment(postID int64, body string) (*Comment, error) {
	reqBody := map[string]any{"post_id": postID, "body": body}
	resp, err := c.doRequest(http.MethodPost, "/comment", reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("create comment failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var comment Comment
	if err := json.NewDecoder(resp.Body).Decode(&comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetPosts lists all posts.
func (c *Client) GetPosts() ([]Post, error) {
	resp, err := c.doRequest(http.MethodGet, "/posts", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get posts failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var posts []Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost fetches a single post together with its comments.
func (c *Client) GetPost(id int64) (*PostWithComments, error) {
	resp, err := c.doRequest(http.MethodGet, fmt.Sprintf("/posts/%d", id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get post failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var post PostWithComments
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetComments lists the comments on a post.
func (c *Client) GetComments(postID int64) ([]Comment, error) {
	resp, err := c.doRequest(http.MethodGet, fmt.Sprintf("/post/%d/comments", postID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get comments failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var comments []Comment
	if err := json.NewDecoder(resp.Body).Decode(&comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// GetStats fetches the site counters.
func (c *Client) GetStats() (*Stats, error) {
	resp, err := c.doRequest(http.MethodGet, "/stats", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get stats failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var stats Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Health checks the liveness probe.
func (c *Client) Health() error {
	resp, err := c.doRequest(http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed (%d)", resp.StatusCode)
	}
	return nil
}

// Reset wipes all posts and comments. Requires a maintainer token.
func (c *Client) Reset() error {
	resp, err := c.doRequest(http.MethodPost, "/_dev/reset", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("reset failed (%d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// TestHelper provides convenience methods for tests to set up accounts.
type TestHelper struct {
	BaseURL string
}

// NewTestHelper creates a new test helper for the given base URL.
func NewTestHelper(baseURL string) *TestHelper {
	return &TestHelper{BaseURL: baseURL}
}

// CreateAuthenticatedClient registers an account with the given name and
// returns an authenticated client. This is a convenience method for tests.
func (h *TestHelper) CreateAuthenticatedClient(name string) (*Client, error) {
	c := New(h.BaseURL)
	if err := c.RegisterOrLogin(name, "test-password"); err != nil {
		return nil, err
	}
	return c, nil
}

// GetToken creates an account (if needed) and returns an access token.
// This is a convenience method for tests that need just the token string.
func (h *TestHelper) GetToken(name string) (string, error) {
	c, err := h.CreateAuthenticatedClient(name)
	if err != nil {
		return "", err
	}
	return c.Token, nil
}
