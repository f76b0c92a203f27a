// Package notifications publishes blog activity events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"blogapi/internal/middleware"
	"blogapi/internal/models"

	"github.com/redis/go-redis/v9"
)

// FeedChannel carries an event for every new post.
const FeedChannel = "blog:feed"

// Event types.
const (
	EventPostCreated    = "post_created"
	EventCommentCreated = "comment_created"
)

// Event is the JSON payload published on every channel.
type Event struct {
	Type      string    `json:"type"`
	PostID    uint      `json:"post_id"`
	CommentID uint      `json:"comment_id,omitempty"`
	UserID    uint      `json:"user_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PostChannel returns the channel carrying comment events for one post.
func PostChannel(postID uint) string {
	return fmt.Sprintf("blog:post:%d", postID)
}

// Notifier publishes events into Redis channels. A nil client makes every
// call a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishPost announces a new post on the feed channel.
func (n *Notifier) PublishPost(ctx context.Context, post *models.Post) error {
	return n.publish(ctx, FeedChannel, Event{
		Type:      EventPostCreated,
		PostID:    post.ID,
		UserID:    post.AuthorID,
		Title:     post.Title,
		CreatedAt: post.CreatedAt,
	})
}

// PublishComment announces a new comment on its post's channel.
func (n *Notifier) PublishComment(ctx context.Context, comment *models.Comment) error {
	ev := Event{
		Type:      EventCommentCreated,
		PostID:    comment.PostID,
		CommentID: comment.ID,
		Name:      comment.Name,
		CreatedAt: comment.CreatedAt,
	}
	if comment.UserID != nil {
		ev.UserID = *comment.UserID
	}
	return n.publish(ctx, PostChannel(comment.PostID), ev)
}

func (n *Notifier) publish(ctx context.Context, channel string, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// StartSubscriber subscribes to the feed and every post channel and calls
// onEvent for each decoded event until ctx is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onEvent func(channel string, ev Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, FeedChannel, "blog:post:*")
	// Wait for the subscription so events published right after return are seen.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("dropping malformed event", "channel", msg.Channel, "error", err.Error())
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onEvent(msg.Channel, ev)
				}()
			}
		}
	}()

	return nil
}
