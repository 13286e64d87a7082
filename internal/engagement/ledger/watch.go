package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/platform/analytics"
)

// WatchInput is one watch progress report from a player.
type WatchInput struct {
	DurationSeconds int64
	Completed       bool
	Country         string
	DeviceType      string
}

// RecordWatch upserts watch progress for (actor, episode). The first report
// for a triple counts a view on the episode and its parent anime; repeats
// only update progress in place.
func (s *Service) RecordWatch(ctx context.Context, a actor.Actor, animeRef, episodeRef Ref, in WatchInput) (Outcome, error) {
	start := time.Now()
	outcome, err := s.recordWatch(ctx, a, animeRef, episodeRef, in)
	s.observe("record_watch", start, outcome, err)
	return outcome, err
}

func (s *Service) recordWatch(ctx context.Context, a actor.Actor, animeRef, episodeRef Ref, in WatchInput) (Outcome, error) {
	if err := requireActor(a); err != nil {
		return "", err
	}
	if episodeRef.IsZero() {
		return "", validationf("episode", "an episode is required")
	}
	if in.DurationSeconds < 0 {
		return "", validationf("watch_duration_seconds", "must not be negative")
	}

	target, an, ep, err := s.resolveTarget(ctx, animeRef, episodeRef)
	if err != nil {
		return "", err
	}
	if err := gatePremium(a, an, ep); err != nil {
		return "", err
	}

	if in.DurationSeconds > ep.DurationSeconds {
		return "", validationf("watch_duration_seconds", "exceeds episode duration of %ds", ep.DurationSeconds)
	}
	// Completion floor is 90% of the episode, boundary inclusive. Integer
	// comparison keeps the exactly-90% case exact: 10*d < 9*D rejects, equality passes.
	if in.Completed && 10*in.DurationSeconds < 9*ep.DurationSeconds {
		return "", validationf("completed", "watch duration below 90%% of episode duration")
	}

	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = "UZ"
	}

	counted, err := s.watch.UpsertWatch(ctx, WatchRecord{
		Actor:                a,
		AnimeID:              target.AnimeID(),
		EpisodeID:            ep.ID,
		WatchDurationSeconds: in.DurationSeconds,
		Completed:            in.Completed,
		Country:              country,
		DeviceType:           strings.TrimSpace(in.DeviceType),
	})
	if err != nil {
		return "", err
	}
	if !counted {
		return OutcomeUpdated, nil
	}

	s.events.Publish(analytics.SubjectViewCounted, "view_counted", a.Key(), map[string]any{
		"anime_id":   target.AnimeID(),
		"episode_id": ep.ID,
	})
	return OutcomeCreated, nil
}

// WatchHistory lists the actor's watch history, most recent first.
func (s *Service) WatchHistory(ctx context.Context, a actor.Actor, limit int) ([]WatchRecord, error) {
	if err := requireActor(a); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.watch.ListWatchHistory(ctx, a, limit)
}
