// Package permission maps caller roles to the set of slash commands each
// role may invoke. The table is loaded once at startup and never mutated.
package permission

import (
	"fmt"
	"log/slog"
	"os"

	"gridbot/internal/domain"

	"gopkg.in/yaml.v3"
)

// Gate is a static role → command-set lookup. Unknown roles and unlisted
// commands are denied.
type Gate struct {
	allowed map[domain.Role]map[string]bool
}

// tableFile is the YAML shape of an on-disk permission table.
type tableFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// NewGate builds a gate from an explicit role → commands table.
func NewGate(table map[domain.Role][]string) *Gate {
	allowed := make(map[domain.Role]map[string]bool, len(table))
	for role, commands := range table {
		set := make(map[string]bool, len(commands))
		for _, cmd := range commands {
			set[cmd] = true
		}
		allowed[role] = set
	}
	return &Gate{allowed: allowed}
}

// DefaultTable is the compiled-in permission table used when no YAML file
// is configured. Commissioner and admin extend the plain user set.
func DefaultTable() map[domain.Role][]string {
	user := []string{"help", "ping", "game_info"}
	commissioner := append([]string{"end_game"}, user...)
	admin := append([]string{"start_game", "message_all"}, commissioner...)
	return map[domain.Role][]string{
		domain.RoleUser:         user,
		domain.RoleCommissioner: commissioner,
		domain.RoleAdmin:        admin,
	}
}

// LoadGate reads a permission table from a YAML file. A missing path falls
// back to the compiled-in defaults.
func LoadGate(path string, logger *slog.Logger) (*Gate, error) {
	if path == "" {
		return NewGate(DefaultTable()), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Debug("permission table not found, using defaults", "path", path)
		return NewGate(DefaultTable()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permission table %s: %w", path, err)
	}

	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse permission table %s: %w", path, err)
	}

	table := make(map[domain.Role][]string, len(file.Roles))
	for role, commands := range file.Roles {
		switch domain.Role(role) {
		case domain.RoleUser, domain.RoleCommissioner, domain.RoleAdmin:
			table[domain.Role(role)] = commands
		default:
			return nil, fmt.Errorf("permission table %s: unknown role %q", path, role)
		}
	}

	logger.Info("loaded permission table", "path", path, "roles", len(table))
	return NewGate(table), nil
}

// IsAllowed reports whether role may invoke command. Deny by default.
func (g *Gate) IsAllowed(role domain.Role, command string) bool {
	set, ok := g.allowed[role]
	if !ok {
		return false
	}
	return set[command]
}
