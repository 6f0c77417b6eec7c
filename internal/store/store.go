package store

import (
	"context"
	"errors"

	"github.com/dmartov/miniblog/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("duplicate username")
)

type Store interface {
	UserStore
	PostStore
	CommentStore
	GetSiteStats(ctx context.Context) (model.SiteStats, error)
	ResetContent(ctx context.Context) error
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUserByName(ctx context.Context, username string) (model.User, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, post *model.Post) (int64, error)
	GetPost(ctx context.Context, id int64) (model.Post, error)
	ListPosts(ctx context.Context) ([]model.Post, error)
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *model.Comment) (int64, error)
	ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error)
}
