// Package store provides the Postgres-backed persistence for the
// engagement ledger, plus an in-memory implementation for development and
// tests. All counter maintenance happens here, inside the same transaction
// as the record change that triggered it.
package store

import (
	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/ledger"
)

// actorColumn names the column an actor keys on. Actors are validated at
// construction, so the default arm is unreachable in practice.
func actorColumn(a actor.Actor) (string, int64) {
	if uid, ok := a.UserID(); ok {
		return "user_id", uid
	}
	sid, _ := a.SessionID()
	return "session_id", sid
}

// targetColumn names the column a target keys on.
func targetColumn(t ledger.Target) (string, int64) {
	if t.IsEpisode() {
		return "episode_id", t.ID()
	}
	return "anime_id", t.ID()
}

// targetTable is the table holding the target's denormalized counters.
func targetTable(t ledger.Target) string {
	if t.IsEpisode() {
		return "episodes"
	}
	return "anime"
}

// actorFromColumns rebuilds the actor union from nullable scan results.
func actorFromColumns(userID, sessionID *int64) actor.Actor {
	if userID != nil {
		return actor.User(*userID)
	}
	if sessionID != nil {
		return actor.Session(*sessionID)
	}
	return actor.Actor{}
}

// targetFromColumns rebuilds the target union from nullable scan results.
// animeID doubles as the parent id for episode targets when known.
func targetFromColumns(animeID, episodeID *int64) ledger.Target {
	if episodeID != nil {
		parent := int64(0)
		if animeID != nil {
			parent = *animeID
		}
		return ledger.EpisodeTarget(*episodeID, parent)
	}
	if animeID != nil {
		return ledger.AnimeTarget(*animeID)
	}
	return ledger.Target{}
}
