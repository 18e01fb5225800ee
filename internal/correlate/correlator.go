// Package correlate answers one question for an inbound event: is any game
// waiting on input from this location and author, and input of what kind.
// It is a pure read path over the backend; nothing is cached between events.
package correlate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gridbot/internal/backend"
	"gridbot/internal/domain"
)

// GameReader is the slice of the backend client the correlator needs.
type GameReader interface {
	GameByThread(ctx context.Context, channelID string) (*domain.Game, error)
	GameByCoach(ctx context.Context, discordID string) (*domain.Game, error)
}

// Correlator resolves pending actions against live backend state.
type Correlator struct {
	games  GameReader
	logger *slog.Logger
}

// New creates a correlator.
func New(games GameReader, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{games: games, logger: logger}
}

// ResolvePendingAction returns the pending action the given location/author
// pair is expected to satisfy, or nil when nothing is waiting there. A
// backend validation answer ("no game bound here") is absence; a transport
// failure is an error. The two are never conflated: treating an
// unreachable backend as absence would silently drop a legitimate action.
//
// The coach lookup runs only for direct messages. A guild channel with no
// game bound to it is a dead end: secret inputs belong in the coach's DM,
// never in an arbitrary public channel.
func (c *Correlator) ResolvePendingAction(ctx context.Context, locationID, authorID string, isDM bool) (*domain.PendingAction, error) {
	game, err := c.games.GameByThread(ctx, locationID)
	if err != nil {
		var vErr *backend.ValidationError
		if !errors.As(err, &vErr) {
			return nil, fmt.Errorf("resolve game by thread: %w", err)
		}
		if !isDM {
			return nil, nil
		}
		// A DM carries no thread binding; a game may still be waiting
		// on this author.
		game, err = c.games.GameByCoach(ctx, authorID)
		if err != nil {
			if errors.As(err, &vErr) {
				return nil, nil
			}
			return nil, fmt.Errorf("resolve game by coach: %w", err)
		}
	}

	return pendingFromGame(game, locationID, authorID, isDM), nil
}

// pendingFromGame derives what the game is waiting on, narrowed to the
// event's location and author. Returns nil when the game is over, waiting
// on somebody else, or waiting at a different location.
func pendingFromGame(game *domain.Game, locationID, authorID string, isDM bool) *domain.PendingAction {
	if game == nil || game.Status == "FINAL" {
		return nil
	}

	inThread := !isDM && locationID == game.ThreadID
	if !inThread && !isDM {
		// A guild channel other than the game thread carries no input.
		return nil
	}
	matchup := fmt.Sprintf("%s vs %s", game.HomeTeam, game.AwayTeam)

	// Coin toss call comes first, always from the away coach.
	if game.CoinTossWinner == "" {
		if authorID != game.AwayCoachID {
			return nil
		}
		return &domain.PendingAction{
			GameID:     game.GameID,
			Kind:       domain.InputCoinTossCall,
			LocationID: locationID,
			Overtime:   game.Status == "OVERTIME",
			Label:      "coin toss call for " + matchup,
		}
	}

	// Then the winner's receive/defer (or overtime offense/defense) choice.
	if game.CoinTossChoice == "" {
		if authorID != coachFor(game, game.CoinTossWinner) {
			return nil
		}
		return &domain.PendingAction{
			GameID:     game.GameID,
			Kind:       domain.InputCoinTossChoice,
			LocationID: locationID,
			Overtime:   game.Status == "OVERTIME",
			Label:      "coin toss choice for " + matchup,
		}
	}

	waitingCoach := coachFor(game, game.WaitingOn)
	if waitingCoach == "" || authorID != waitingCoach {
		return nil
	}

	// Offensive numbers are public and live in the game thread; defensive
	// numbers are secret and live in the coach's DM.
	if game.WaitingOn == game.Possession {
		if !inThread {
			return nil
		}
		return &domain.PendingAction{
			GameID:     game.GameID,
			Kind:       domain.InputOffenseNumber,
			LocationID: game.ThreadID,
			Label:      "offensive number for " + matchup,
		}
	}

	if inThread {
		return nil
	}
	return &domain.PendingAction{
		GameID:     game.GameID,
		Kind:       domain.InputDefenseNumber,
		LocationID: authorID,
		Label:      "defensive number for " + matchup,
	}
}

func coachFor(game *domain.Game, team string) string {
	switch team {
	case "home":
		return game.HomeCoachID
	case "away":
		return game.AwayCoachID
	default:
		return ""
	}
}
