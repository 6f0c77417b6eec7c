package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dmartov/miniblog/internal/auth"
	"github.com/dmartov/miniblog/internal/client"
	"github.com/dmartov/miniblog/internal/config"
	httpapp "github.com/dmartov/miniblog/internal/http"
	"github.com/dmartov/miniblog/internal/store/sqlite"

	"github.com/joho/godotenv"
)

// CLIConfig holds the CLI client configuration persisted to disk.
type CLIConfig struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Token    string `json:"token"`
	TokenExp string `json:"token_expires"`
}

func main() {
	if len(os.Args) < 2 {
		runServer()
		return
	}

	cmd := os.Args[1]

	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println("miniblog v0.1.0")
		return
	}

	if strings.HasPrefix(cmd, "-") {
		runServer()
		return
	}

	args := os.Args[2:]

	switch cmd {
	case "server", "serve":
		runServer()
	case "register":
		cmdRegister(args)
	case "login", "auth":
		cmdLogin(args)
	case "post":
		cmdPost(args)
	case "comment":
		cmdComment(args)
	case "read", "list":
		cmdRead(args)
	case "status", "whoami":
		cmdStatus(args)
	case "reset":
		cmdReset(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`miniblog - A small blog with token-based auth

Usage: miniblog <command> [options]

Quick Start:
  miniblog register --user alice --pass secret
  miniblog post --body "Hello, world"

Client Commands:
  register            Create an account and store a token
  login               Get a fresh token (when the stored one expires)
  post                Create a post
  comment             Comment on a post
  read                Read posts (or one post with its comments)
  status              Show current config and token status
  reset               Wipe all posts and comments (maintainers only)

Server:
  server              Start the miniblog server (default if no command)

Examples:
  miniblog register --user alice --pass secret
  miniblog post --body "My first post"
  miniblog comment --post 1 --body "Nice post!"
  miniblog read
  miniblog read --post 1

Environment Variables (server):
  MINIBLOG_ADDR         Listen address (default: :8080)
  MINIBLOG_DB           Database path (default: miniblog.db)
  MINIBLOG_JWT_SECRET   Token signing secret
  MINIBLOG_TOKEN_TTL    Token lifetime (default: 30m)
  MINIBLOG_MAINTAINERS  Comma-separated maintainer usernames`)
}

// ============================================================================
// SERVER
// ============================================================================

func runServer() {
	_ = godotenv.Load()
	cfg := config.Load()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer store.Close()

	authSvc := auth.NewService(store, []byte(cfg.JWTSecret), cfg.TokenTTL)
	server := httpapp.NewServer(store, authSvc, cfg)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("miniblog listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}

// ============================================================================
// CLIENT COMMANDS
// ============================================================================

func cmdRegister(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	user := fs.String("user", "", "Username (required)")
	pass := fs.String("pass", "", "Password (required)")
	baseURL := fs.String("url", "http://localhost:8080", "Server URL")
	fs.Parse(args)

	if *user == "" || *pass == "" {
		fmt.Fprintln(os.Stderr, "Error: --user and --pass are required")
		fmt.Fprintln(os.Stderr, "Usage: miniblog register --user <name> --pass <password>")
		os.Exit(1)
	}

	c := client.New(strings.TrimSuffix(*baseURL, "/"))
	err := c.Register(*user, *pass)
	if errors.Is(err, client.ErrAlreadyRegistered) {
		fmt.Fprintf(os.Stderr, "Error: username '%s' is already taken\n", *user)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := CLIConfig{
		BaseURL:  c.BaseURL,
		Username: *user,
		Token:    c.Token,
		TokenExp: c.TokenExp.Format(time.RFC3339),
	}
	if err := saveCLIConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Registered '%s'\n", *user)
	fmt.Printf("  Token valid until %s\n", cfg.TokenExp)
	fmt.Println("\nReady to post! Example:")
	fmt.Println("  miniblog post --body \"Hello, world\"")
}

func cmdLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	user := fs.String("user", "", "Username (defaults to last registered)")
	pass := fs.String("pass", "", "Password (required)")
	fs.Parse(args)

	cfg, err := loadCLIConfig()
	if err != nil && *user == "" {
		fmt.Fprintf(os.Stderr, "Error: %v\nRun 'miniblog register' first or pass --user\n", err)
		os.Exit(1)
	}
	username := *user
	if username == "" {
		username = cfg.Username
	}
	if *pass == "" {
		fmt.Fprintln(os.Stderr, "Error: --pass is required")
		os.Exit(1)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}

	c := client.New(cfg.BaseURL)
	if err := c.Login(username, *pass); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg.Username = username
	cfg.Token = c.Token
	cfg.TokenExp = c.TokenExp.Format(time.RFC3339)
	if err := saveCLIConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Logged in as '%s'\n", username)
	fmt.Printf("  Expires: %s\n", cfg.TokenExp)
}

func cmdPost(args []string) {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	body := fs.String("body", "", "Post body (required)")
	fs.Parse(args)

	if *body == "" {
		fmt.Fprintln(os.Stderr, "Error: --body is required")
		os.Exit(1)
	}

	c, err := loadAuthenticatedClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	post, err := c.CreatePost(*body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Posted\n")
	fmt.Printf("  ID: %d\n", post.ID)
}

func cmdComment(args []string) {
	fs := flag.NewFlagSet("comment", flag.ExitOnError)
	postID := fs.Int64("post", 0, "Post ID (required)")
	body := fs.String("body", "", "Comment body (required)")
	fs.Parse(args)

	if *postID == 0 || *body == "" {
		fmt.Fprintln(os.Stderr, "Error: --post and --body are required")
		os.Exit(1)
	}

	c, err := loadAuthenticatedClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	comment, err := c.CreateComment(*postID, *body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Commented on post %d\n", *postID)
	fmt.Printf("  ID: %d\n", comment.ID)
}

func cmdRead(args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	postID := fs.Int64("post", 0, "Get a specific post with comments")
	fs.Parse(args)

	cfg, _ := loadCLIConfig()
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	c := client.New(baseURL)

	if *postID != 0 {
		post, err := c.GetPost(*postID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n#%d by %s\n", post.ID, post.Owner)
		fmt.Printf("  %s\n", post.Body)
		if len(post.Comments) > 0 {
			fmt.Printf("\n  --- Comments (%d) ---\n", len(post.Comments))
			for _, comment := range post.Comments {
				fmt.Printf("  [%d] %s: %s\n", comment.ID, comment.Owner, comment.Body)
			}
		}
		return
	}

	posts, err := c.GetPosts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nminiblog (%d posts)\n\n", len(posts))
	for _, p := range posts {
		fmt.Printf("#%d %s\n", p.ID, p.Owner)
		fmt.Printf("   %s\n\n", p.Body)
	}
}

func cmdStatus(args []string) {
	cfg, err := loadCLIConfig()
	if err != nil {
		fmt.Println("Status: Not registered")
		fmt.Println("\nRun: miniblog register --user <name> --pass <password>")
		return
	}

	fmt.Printf("User:   %s\n", cfg.Username)
	fmt.Printf("Server: %s\n", cfg.BaseURL)

	if cfg.Token == "" {
		fmt.Println("Token:  Not authenticated")
		fmt.Println("\nRun: miniblog login --pass <password>")
	} else {
		exp, _ := time.Parse(time.RFC3339, cfg.TokenExp)
		if time.Now().After(exp) {
			fmt.Println("Token:  Expired")
			fmt.Println("\nRun: miniblog login --pass <password>")
		} else {
			fmt.Printf("Token:  Valid until %s\n", cfg.TokenExp)
		}
	}
}

func cmdReset(args []string) {
	c, err := loadAuthenticatedClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := c.Reset(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ All posts and comments deleted")
}

// ============================================================================
// HELPERS
// ============================================================================

func cliConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".miniblog", "config.json")
}

func loadCLIConfig() (CLIConfig, error) {
	data, err := os.ReadFile(cliConfigPath())
	if err != nil {
		return CLIConfig{}, errors.New("not registered")
	}
	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}

func saveCLIConfig(cfg CLIConfig) error {
	path := cliConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	return os.WriteFile(path, data, 0600)
}

func loadAuthenticatedClient() (*client.Client, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Token == "" {
		return nil, errors.New("not authenticated - run 'miniblog login'")
	}
	if cfg.TokenExp != "" {
		exp, _ := time.Parse(time.RFC3339, cfg.TokenExp)
		if time.Now().After(exp) {
			return nil, errors.New("token expired - run 'miniblog login'")
		}
	}

	c := client.New(cfg.BaseURL)
	c.Token = cfg.Token
	c.TokenExp, _ = time.Parse(time.RFC3339, cfg.TokenExp)
	return c, nil
}
