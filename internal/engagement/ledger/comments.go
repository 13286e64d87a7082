package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/platform/analytics"
)

// DefaultGuestName is used for anonymous comments posted without a name.
const DefaultGuestName = "Anonymous"

// CommentInput is the material for a new comment.
type CommentInput struct {
	Body      string
	GuestName string
	ParentID  *int64
}

// PostComment creates a comment on the target. Registered actors are
// approved immediately; anonymous ones await moderation. total_comments on
// the target moves immediately in both cases, matching the counting policy
// the rest of the platform displays.
func (s *Service) PostComment(ctx context.Context, a actor.Actor, animeRef, episodeRef Ref, in CommentInput) (Comment, error) {
	start := time.Now()
	c, err := s.postComment(ctx, a, animeRef, episodeRef, in)
	s.observe("post_comment", start, OutcomeCreated, err)
	return c, err
}

func (s *Service) postComment(ctx context.Context, a actor.Actor, animeRef, episodeRef Ref, in CommentInput) (Comment, error) {
	if err := requireActor(a); err != nil {
		return Comment{}, err
	}

	body := in.Body
	if s.sanitizer != nil {
		body = s.sanitizer.Sanitize(body)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, validationf("body", "must not be empty")
	}

	target, an, ep, err := s.resolveTarget(ctx, animeRef, episodeRef)
	if err != nil {
		return Comment{}, err
	}
	if err := gatePremium(a, an, ep); err != nil {
		return Comment{}, err
	}

	if in.ParentID != nil {
		parent, err := s.comments.CommentByID(ctx, *in.ParentID)
		if err != nil {
			return Comment{}, err
		}
		if !parent.Target.Same(target) {
			return Comment{}, validationf("parent_id", "parent comment belongs to a different target")
		}
		// One level of nesting: replies attach to root comments only.
		if parent.ParentID != nil {
			return Comment{}, validationf("parent_id", "cannot reply to a reply")
		}
	}

	guestName := ""
	if a.IsSession() {
		guestName = strings.TrimSpace(in.GuestName)
		if guestName == "" {
			guestName = DefaultGuestName
		}
	}

	created, err := s.comments.CreateComment(ctx, Comment{
		Actor:     a,
		Target:    target,
		ParentID:  in.ParentID,
		Body:      body,
		GuestName: guestName,
		Approved:  a.IsUser(),
	})
	if err != nil {
		return Comment{}, err
	}

	s.events.Publish(analytics.SubjectCommentPosted, "comment_posted", a.Key(), map[string]any{
		"target_kind": target.Kind().String(),
		"target_id":   target.ID(),
		"comment_id":  created.ID,
		"approved":    created.Approved,
	})
	return created, nil
}

// EditComment replaces the body of the actor's own comment.
func (s *Service) EditComment(ctx context.Context, a actor.Actor, commentID int64, body string) error {
	start := time.Now()
	err := s.editComment(ctx, a, commentID, body)
	s.observe("edit_comment", start, OutcomeUpdated, err)
	return err
}

func (s *Service) editComment(ctx context.Context, a actor.Actor, commentID int64, body string) error {
	if err := requireActor(a); err != nil {
		return err
	}
	if s.sanitizer != nil {
		body = s.sanitizer.Sanitize(body)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return validationf("body", "must not be empty")
	}
	return s.comments.UpdateCommentBody(ctx, commentID, a, body)
}

// DeleteComment removes the actor's own comment and decrements the owning
// target's comment counter.
func (s *Service) DeleteComment(ctx context.Context, a actor.Actor, commentID int64) error {
	start := time.Now()
	err := s.deleteComment(ctx, a, commentID)
	s.observe("delete_comment", start, OutcomeRemoved, err)
	return err
}

func (s *Service) deleteComment(ctx context.Context, a actor.Actor, commentID int64) error {
	if err := requireActor(a); err != nil {
		return err
	}
	return s.comments.DeleteComment(ctx, commentID, a)
}

// Comments lists root comments with replies for a target, newest roots
// first. Display path: no actor required.
func (s *Service) Comments(ctx context.Context, animeRef, episodeRef Ref, limit int) ([]CommentThread, error) {
	target, _, _, err := s.resolveTarget(ctx, animeRef, episodeRef)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.comments.ListComments(ctx, target, limit)
}
