package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TeamMember is one agent in the roster. Mentions of Name or any Alias in a
// chat message reassign the conversation to this agent.
type TeamMember struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases,omitempty"`
	Persona string   `yaml:"persona,omitempty"`
	Default bool     `yaml:"default,omitempty"`
}

// Team is the agent roster loaded from YAML.
type Team struct {
	Members []TeamMember `yaml:"members"`
}

// LoadTeam reads the roster. A missing path returns a single-member default
// team so a fresh install still answers messages.
func LoadTeam(path string) (Team, error) {
	if path == "" {
		return defaultTeam(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultTeam(), nil
		}
		return Team{}, fmt.Errorf("read team file: %w", err)
	}

	var team Team
	if err := yaml.Unmarshal(data, &team); err != nil {
		return Team{}, fmt.Errorf("parse team file: %w", err)
	}
	if len(team.Members) == 0 {
		return defaultTeam(), nil
	}
	return team, nil
}

// DefaultAgentID returns the member marked default, or the first member.
func (t Team) DefaultAgentID() string {
	for _, m := range t.Members {
		if m.Default {
			return m.ID
		}
	}
	if len(t.Members) > 0 {
		return t.Members[0].ID
	}
	return "core-agent-1"
}

// Member returns the roster entry for id, or nil.
func (t Team) Member(id string) *TeamMember {
	for i := range t.Members {
		if t.Members[i].ID == id {
			return &t.Members[i]
		}
	}
	return nil
}

func defaultTeam() Team {
	return Team{Members: []TeamMember{{
		ID:      "core-agent-1",
		Name:    "Assistant",
		Default: true,
	}}}
}
