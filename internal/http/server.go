package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmartov/miniblog/internal/auth"
	"github.com/dmartov/miniblog/internal/config"
	"github.com/dmartov/miniblog/internal/model"
	"github.com/dmartov/miniblog/internal/store"

	_ "github.com/dmartov/miniblog/docs" // swagger docs

	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

type Server struct {
	store store.Store
	auth  *auth.Service
	cfg   config.Config
}

func NewServer(store store.Store, authSvc *auth.Service, cfg config.Config) *Server {
	return &Server{store: store, auth: authSvc, cfg: cfg}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/swagger/") {
		httpSwagger.WrapHandler.ServeHTTP(w, r)
		return
	}

	segments := splitPath(r.URL.Path)

	switch {
	case len(segments) == 1 && segments[0] == "register":
		if r.Method == http.MethodPost {
			s.handleRegister(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "token":
		if r.Method == http.MethodPost {
			s.handleToken(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "post":
		if r.Method == http.MethodPost {
			s.handleCreatePost(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "posts":
		if r.Method == http.MethodGet {
			s.handleListPosts(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "posts":
		if r.Method == http.MethodGet {
			s.handleGetPost(w, r, segments[1])
			return
		}
	case len(segments) == 1 && segments[0] == "comment":
		if r.Method == http.MethodPost {
			s.handleCreateComment(w, r)
			return
		}
	case len(segments) == 3 && segments[0] == "post" && segments[2] == "comments":
		if r.Method == http.MethodGet {
			s.handleListComments(w, r, segments[1])
			return
		}
	case len(segments) == 1 && segments[0] == "health":
		if r.Method == http.MethodGet {
			s.handleHealth(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "stats":
		if r.Method == http.MethodGet {
			s.handleGetStats(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "_dev" && segments[1] == "reset":
		if r.Method == http.MethodPost {
			s.handleReset(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "openapi.json":
		if r.Method == http.MethodGet {
			s.serveOpenAPIJSON(w, r)
			return
		}
	default:
		notFound(w)
		return
	}

	methodNotAllowed(w)
}

// handleRegister creates a user and returns a bearer token.
//
//	@Summary		Register a user
//	@Description	Create an account with a unique username and receive a bearer token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		object{username=string,password=string}	true	"Registration payload"
//	@Success		201		{object}	model.Token
//	@Failure		400		{object}	map[string]string	"Missing username or password"
//	@Failure		409		{object}	map[string]string	"Username taken"
//	@Router			/register [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("username and password required"))
		return
	}

	maintainer := s.cfg.IsMaintainer(req.Username)
	_, token, err := s.auth.Register(r.Context(), req.Username, req.Password, maintainer)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			writeError(w, http.StatusConflict, errors.New("username already taken"))
			return
		}
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, token)
}

// handleToken exchanges a username/password form for a bearer token.
//
//	@Summary		Get a token
//	@Description	OAuth2-style password flow; form-encoded username and password
//	@Tags			Auth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string	true	"Username"
//	@Param			password	formData	string	true	"Password"
//	@Success		200			{object}	model.Token
//	@Failure		401			{object}	map[string]string	"Bad credentials"
//	@Router			/token [post]
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid form body"))
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, errors.New("username and password required"))
		return
	}

	user, err := s.auth.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		internalError(w)
		return
	}

	token, err := s.auth.IssueToken(user.Username)
	if err != nil {
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// handleCreatePost creates a post owned by the authenticated user.
//
//	@Summary		Create a post
//	@Tags			Posts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		object{body=string}	true	"Post payload"
//	@Success		201		{object}	model.Post
//	@Failure		400		{object}	map[string]string	"Missing body"
//	@Failure		401		{object}	map[string]string	"Missing or invalid token"
//	@Router			/post [post]
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, errors.New("body required"))
		return
	}

	post := model.Post{
		Body:      req.Body,
		Owner:     user.Username,
		CreatedAt: time.Now(),
	}
	id, err := s.store.CreatePost(r.Context(), &post)
	if err != nil {
		internalError(w)
		return
	}
	post.ID = id

	writeJSON(w, http.StatusCreated, post)
}

// handleListPosts returns all posts in insertion order.
//
//	@Summary		List posts
//	@Tags			Posts
//	@Produce		json
//	@Success		200	{array}	model.Post
//	@Router			/posts [get]
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// handleGetPost returns one post together with its comments.
//
//	@Summary		Get a post with comments
//	@Tags			Posts
//	@Produce		json
//	@Param			id	path		int	true	"Post ID"
//	@Success		200	{object}	model.PostWithComments
//	@Failure		404	{object}	map[string]string	"Post not found"
//	@Router			/posts/{id} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid post id"))
		return
	}

	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("post not found"))
			return
		}
		internalError(w)
		return
	}
	comments, err := s.store.ListCommentsByPost(r.Context(), id)
	if err != nil {
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, model.PostWithComments{Post: post, Comments: comments})
}

// handleCreateComment adds a comment to an existing post. The post existence
// check runs before the insert so a bad post_id surfaces as a clean 404
// instead of a constraint error.
//
//	@Summary		Create a comment
//	@Tags			Comments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		object{body=string,post_id=int}	true	"Comment payload"
//	@Success		201		{object}	model.Comment
//	@Failure		400		{object}	map[string]string	"Missing body or post_id"
//	@Failure		401		{object}	map[string]string	"Missing or invalid token"
//	@Failure		404		{object}	map[string]string	"Post not found"
//	@Router			/comment [post]
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var req struct {
		Body   string `json:"body"`
		PostID int64  `json:"post_id"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Body) == "" || req.PostID == 0 {
		writeError(w, http.StatusBadRequest, errors.New("body and post_id required"))
		return
	}

	if _, err := s.store.GetPost(r.Context(), req.PostID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("post not found"))
			return
		}
		internalError(w)
		return
	}

	comment := model.Comment{
		Body:      req.Body,
		PostID:    req.PostID,
		Owner:     user.Username,
		CreatedAt: time.Now(),
	}
	id, err := s.store.CreateComment(r.Context(), &comment)
	if err != nil {
		internalError(w)
		return
	}
	comment.ID = id

	writeJSON(w, http.StatusCreated, comment)
}

// handleListComments returns the comments on a post. An unknown post id
// yields an empty list, not an error.
//
//	@Summary		List comments on a post
//	@Tags			Comments
//	@Produce		json
//	@Param			id	path	int	true	"Post ID"
//	@Success		200	{array}	model.Comment
//	@Router			/post/{id}/comments [get]
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid post id"))
		return
	}

	comments, err := s.store.ListCommentsByPost(r.Context(), id)
	if err != nil {
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// handleHealth is a liveness probe.
//
//	@Summary		Health check
//	@Tags			Dev
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetStats returns site-wide counters.
//
//	@Summary		Get site statistics
//	@Tags			Dev
//	@Produce		json
//	@Success		200	{object}	model.SiteStats
//	@Router			/stats [get]
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetSiteStats(r.Context())
	if err != nil {
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleReset empties the posts and comments tables. Maintainers only.
//
//	@Summary		Reset content (dev only)
//	@Description	Delete all comments and posts. Requires a maintainer token.
//	@Tags			Dev
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	map[string]string	"Missing or invalid token"
//	@Failure		403	{object}	map[string]string	"Not a maintainer"
//	@Router			/_dev/reset [post]
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if !user.IsMaintainer {
		writeError(w, http.StatusForbidden, errors.New("maintainer required"))
		return
	}

	if err := s.store.ResetContent(r.Context()); err != nil {
		internalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		internalError(w)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(doc))
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
		return model.User{}, false
	}
	bearer := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	user, err := s.auth.VerifyToken(r.Context(), bearer)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return model.User{}, false
	}
	return user, true
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
