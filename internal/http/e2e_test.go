package httpapp_test

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dmartov/miniblog/internal/auth"
	"github.com/dmartov/miniblog/internal/client"
	"github.com/dmartov/miniblog/internal/config"
	httpapp "github.com/dmartov/miniblog/internal/http"
	"github.com/dmartov/miniblog/internal/store/sqlite"
)

func TestEndToEndServer(t *testing.T) {
	dsnName := strings.NewReplacer("/", "_").Replace(t.Name())
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", dsnName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	cfg := config.Config{
		Addr:        ":0",
		JWTSecret:   "e2e-secret",
		TokenTTL:    time.Hour,
		Maintainers: []string{"dim"},
	}
	authSvc := auth.NewService(st, []byte(cfg.JWTSecret), cfg.TokenTTL)
	server := httpapp.NewServer(st, authSvc, cfg)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	httpServer := &http.Server{Handler: server}
	go func() {
		_ = httpServer.Serve(listener)
	}()
	defer httpServer.Close()

	baseURL := "http://" + listener.Addr().String()

	c := client.New(baseURL)
	if err := c.Health(); err != nil {
		t.Fatalf("health: %v", err)
	}

	if err := c.Register("e2e-user", "e2e-password"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !c.IsAuthenticated() {
		t.Fatalf("expected authenticated client after register")
	}

	post, err := c.CreatePost("end to end post")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if _, err := c.CreateComment(post.ID, "end to end comment"); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	nested, err := c.GetPost(post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if nested.Body != "end to end post" || len(nested.Comments) != 1 {
		t.Fatalf("unexpected nested read: %+v", nested)
	}

	// Commenting on a post that does not exist must fail cleanly.
	if _, err := c.CreateComment(post.ID+1000, "dangling"); err == nil {
		t.Fatalf("expected comment on missing post to fail")
	}

	maintainer := client.New(baseURL)
	if err := maintainer.Register("dim", "dim-password"); err != nil {
		t.Fatalf("register maintainer: %v", err)
	}
	if err := maintainer.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	posts, err := c.GetPosts()
	if err != nil {
		t.Fatalf("get posts: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected empty posts after reset, got %d", len(posts))
	}
}
