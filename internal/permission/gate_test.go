package permission

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"gridbot/internal/domain"
)

func TestGate_UserDeniedStartGame(t *testing.T) {
	g := NewGate(DefaultTable())
	if g.IsAllowed(domain.RoleUser, "start_game") {
		t.Fatal("USER should not be allowed to start_game")
	}
}

func TestGate_AdminAllowedStartGame(t *testing.T) {
	g := NewGate(DefaultTable())
	if !g.IsAllowed(domain.RoleAdmin, "start_game") {
		t.Fatal("ADMIN should be allowed to start_game")
	}
}

func TestGate_CommissionerInheritsUserCommands(t *testing.T) {
	g := NewGate(DefaultTable())
	if !g.IsAllowed(domain.RoleCommissioner, "game_info") {
		t.Fatal("COMMISSIONER should be allowed game_info")
	}
	if !g.IsAllowed(domain.RoleCommissioner, "end_game") {
		t.Fatal("COMMISSIONER should be allowed end_game")
	}
	if g.IsAllowed(domain.RoleCommissioner, "start_game") {
		t.Fatal("COMMISSIONER should not be allowed start_game")
	}
}

func TestGate_UnknownRoleDenied(t *testing.T) {
	g := NewGate(DefaultTable())
	if g.IsAllowed(domain.Role("INTERN"), "help") {
		t.Fatal("unknown role must be denied by default")
	}
}

func TestGate_UnknownCommandDenied(t *testing.T) {
	g := NewGate(DefaultTable())
	if g.IsAllowed(domain.RoleAdmin, "delete_everything") {
		t.Fatal("unlisted command must be denied by default")
	}
}

func TestLoadGate_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "permissions.yaml")
	table := `roles:
  USER: [help]
  ADMIN: [help, start_game]
`
	if err := os.WriteFile(path, []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}

	g, err := LoadGate(path, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.IsAllowed(domain.RoleAdmin, "start_game") {
		t.Fatal("expected ADMIN start_game from file table")
	}
	if g.IsAllowed(domain.RoleUser, "start_game") {
		t.Fatal("USER should be denied start_game")
	}
	if g.IsAllowed(domain.RoleCommissioner, "help") {
		t.Fatal("role absent from file table should be denied")
	}
}

func TestLoadGate_UnknownRoleRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "permissions.yaml")
	if err := os.WriteFile(path, []byte("roles:\n  SUPERUSER: [help]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGate(path, slog.Default()); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestLoadGate_MissingFileFallsBack(t *testing.T) {
	g, err := LoadGate("/nonexistent/permissions.yaml", slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.IsAllowed(domain.RoleUser, "help") {
		t.Fatal("expected default table when file is missing")
	}
}
