package service

import (
	"context"

	"blogapi/internal/middleware"
	"blogapi/internal/models"
)

// EventPublisher announces newly created content. Publishing is best effort;
// a failure is logged and never fails the request.
type EventPublisher interface {
	PublishPost(ctx context.Context, post *models.Post) error
	PublishComment(ctx context.Context, comment *models.Comment) error
}

func logPublishError(ctx context.Context, kind string, err error) {
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish event", "kind", kind, "error", err.Error())
	}
}
