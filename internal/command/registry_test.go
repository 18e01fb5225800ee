package command

import (
	"context"
	"strings"
	"testing"

	"gridbot/internal/domain"
)

type fakeGames struct {
	game *domain.Game
}

func (f *fakeGames) GameByThread(ctx context.Context, channelID string) (*domain.Game, error) {
	return f.game, nil
}

func (f *fakeGames) StartGame(ctx context.Context, homeTeam, awayTeam string) (*domain.Game, error) {
	return &domain.Game{HomeTeam: homeTeam, AwayTeam: awayTeam, Status: "PREGAME"}, nil
}

func (f *fakeGames) EndGame(ctx context.Context, channelID string) (*domain.Game, error) {
	g := *f.game
	g.Status = "FINAL"
	return &g, nil
}

func newTestRegistry() *Registry {
	reg := NewRegistry(nil)
	RegisterBuiltins(reg, &fakeGames{game: &domain.Game{
		HomeTeam: "Huskies", AwayTeam: "Badgers",
		HomeScore: 21, AwayScore: 17,
		Quarter: 4, Clock: "2:00", Down: 3, YardsToGo: 7, BallLocation: 45,
		Possession: "home",
	}})
	return reg
}

func TestRegistry_DispatchAndRegistrationShareTable(t *testing.T) {
	reg := newTestRegistry()

	defs := reg.Definitions()
	if len(defs) == 0 {
		t.Fatal("expected registered definitions")
	}
	for _, def := range defs {
		if _, ok := reg.Get(def.Name); !ok {
			t.Fatalf("definition %q has no dispatchable handler", def.Name)
		}
	}
}

func TestRegistry_UnknownCommand(t *testing.T) {
	reg := newTestRegistry()
	if _, ok := reg.Get("nonexistent"); ok {
		t.Fatal("expected miss for unknown command")
	}
}

func TestHelp_ListsAllCommands(t *testing.T) {
	reg := newTestRegistry()
	h, _ := reg.Get("help")
	out, err := h.Execute(context.Background(), Invocation{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"help", "ping", "game_info", "start_game", "end_game"} {
		if !strings.Contains(out, "/"+name) {
			t.Fatalf("help output missing %q:\n%s", name, out)
		}
	}
}

func TestGameInfo_FormatsGame(t *testing.T) {
	reg := newTestRegistry()
	h, _ := reg.Get("game_info")
	out, err := h.Execute(context.Background(), Invocation{Event: domain.ChatEvent{LocationID: "thread-1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Huskies 21") || !strings.Contains(out, "3rd & 7") {
		t.Fatalf("unexpected game info:\n%s", out)
	}
}

func TestStartGame_RequiresArgs(t *testing.T) {
	reg := newTestRegistry()
	h, _ := reg.Get("start_game")
	out, err := h.Execute(context.Background(), Invocation{Event: domain.ChatEvent{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Fatalf("expected usage hint, got %q", out)
	}
}
