package httpapp

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmartov/miniblog/internal/auth"
	"github.com/dmartov/miniblog/internal/client"
	"github.com/dmartov/miniblog/internal/config"
	"github.com/dmartov/miniblog/internal/store/sqlite"
)

func newIntegrationServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "test-secret"
	}
	dsnName := strings.NewReplacer("/", "_").Replace(t.Name())
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", dsnName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	authSvc := auth.NewService(st, []byte(cfg.JWTSecret), cfg.TokenTTL)
	server := NewServer(st, authSvc, cfg)
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
		_ = st.Close()
	})
	return ts
}

func TestFullFlowIntegration(t *testing.T) {
	ts := newIntegrationServer(t, config.Config{})

	alice := client.New(ts.URL)
	if err := alice.Register("alice", "alice-password"); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bob := client.New(ts.URL)
	if err := bob.Register("bob", "bob-password"); err != nil {
		t.Fatalf("register bob: %v", err)
	}

	post, err := alice.CreatePost("integration test post")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.Owner != "alice" {
		t.Fatalf("expected owner alice, got %s", post.Owner)
	}

	comment, err := bob.CreateComment(post.ID, "first!")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if comment.PostID != post.ID || comment.Owner != "bob" {
		t.Fatalf("unexpected comment: %+v", comment)
	}

	nested, err := alice.GetPost(post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if len(nested.Comments) != 1 || nested.Comments[0].Body != "first!" {
		t.Fatalf("unexpected nested read: %+v", nested)
	}

	posts, err := alice.GetPosts()
	if err != nil {
		t.Fatalf("get posts: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}

	comments, err := bob.GetComments(post.ID)
	if err != nil {
		t.Fatalf("get comments: %v", err)
	}
	if len(comments) != len(nested.Comments) {
		t.Fatalf("nested read and comment list disagree: %d vs %d", len(nested.Comments), len(comments))
	}

	stats, err := alice.GetStats()
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Users != 2 || stats.Posts != 1 || stats.Comments != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestLoginIssuesFreshToken(t *testing.T) {
	ts := newIntegrationServer(t, config.Config{})

	c := client.New(ts.URL)
	if err := c.Register("alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	registerToken := c.Token

	if err := c.Login("alice", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if c.Token == "" {
		t.Fatalf("expected a token from login")
	}

	// Both tokens stay valid until expiry; pick the register one and write with it.
	c.Token = registerToken
	if _, err := c.CreatePost("written with the register token"); err != nil {
		t.Fatalf("create post with register token: %v", err)
	}
}

func TestRegisterOrLoginFallsBack(t *testing.T) {
	ts := newIntegrationServer(t, config.Config{})

	first := client.New(ts.URL)
	if err := first.RegisterOrLogin("alice", "secret"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	second := client.New(ts.URL)
	if err := second.RegisterOrLogin("alice", "secret"); err != nil {
		t.Fatalf("expected fallback to login, got %v", err)
	}
	if !second.IsAuthenticated() {
		t.Fatalf("expected an authenticated client")
	}
}

func TestMaintainerResetIntegration(t *testing.T) {
	ts := newIntegrationServer(t, config.Config{Maintainers: []string{"dim"}})

	user := client.New(ts.URL)
	if err := user.Register("alice", "alice-password"); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	maintainer := client.New(ts.URL)
	if err := maintainer.Register("dim", "dim-password"); err != nil {
		t.Fatalf("register dim: %v", err)
	}

	post, err := user.CreatePost("soon to be wiped")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if _, err := user.CreateComment(post.ID, "me too"); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	if err := user.Reset(); err == nil {
		t.Fatalf("expected reset to fail for a non-maintainer")
	}
	posts, err := user.GetPosts()
	if err != nil {
		t.Fatalf("get posts: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("failed reset must not change data, got %d posts", len(posts))
	}

	if err := maintainer.Reset(); err != nil {
		t.Fatalf("maintainer reset: %v", err)
	}
	posts, err = user.GetPosts()
	if err != nil {
		t.Fatalf("get posts: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected empty posts after reset, got %d", len(posts))
	}
	comments, err := user.GetComments(post.ID)
	if err != nil {
		t.Fatalf("get comments: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected empty comments after reset, got %d", len(comments))
	}
}
