package service

import (
	"context"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
)

type CommentService interface {
	Add(ctx context.Context, r model.AddRequest) (model.Comment, error)
	Edit(ctx context.Context, r model.EditRequest) error
	Delete(ctx context.Context, r model.DeleteRequest) error
	Vote(ctx context.Context, r model.VoteRequest) error
	List(ctx context.Context, key model.PageKey) (model.ListResponse, error)
	HasNew(ctx context.Context, r model.ProbeRequest) (bool, error)
	Ban(ctx context.Context, r model.BanRequest) error
	Health(ctx context.Context) error
}
