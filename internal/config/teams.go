package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultTeams maps each sales team (one per development) to its advisors.
var defaultTeams = map[string][]string{
	"Bosques de Cholul": {
		"a.lopez@grupoprovi.mx",
		"e.flota@grupoprovi.mx",
		"j.estrada@grupoprovi.mx",
	},
	"Cumbres de San Pedro": {
		"m.vivas@grupoprovi.mx",
		"j.zapata@grupoprovi.mx",
		"r.cortes@grupoprovi.mx",
	},
	"Paraíso Caucel": {
		"l.lopez@grupoprovi.mx",
		"g.varela@grupoprovi.mx",
		"z.martin@grupoprovi.mx",
	},
}

// TeamDirectory resolves an advisor's sales team from their email.
// It is loaded once at startup and shared by the user sync and the read API.
type TeamDirectory struct {
	byEmail map[string]string
}

type teamsFile struct {
	Teams map[string][]string `yaml:"teams"`
}

func NewTeamDirectory(teams map[string][]string) *TeamDirectory {
	d := &TeamDirectory{byEmail: make(map[string]string)}
	for team, emails := range teams {
		for _, email := range emails {
			d.byEmail[normalizeEmail(email)] = team
		}
	}
	return d
}

func DefaultTeamDirectory() *TeamDirectory {
	return NewTeamDirectory(defaultTeams)
}

// LoadTeamDirectory reads a YAML file of the form
//
//	teams:
//	  Bosques de Cholul: [a.lopez@grupoprovi.mx]
//
// An empty path returns the built-in table.
func LoadTeamDirectory(path string) (*TeamDirectory, error) {
	if path == "" {
		return DefaultTeamDirectory(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read teams file: %w", err)
	}

	var f teamsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse teams file: %w", err)
	}
	if len(f.Teams) == 0 {
		return nil, fmt.Errorf("teams file %s defines no teams", path)
	}

	return NewTeamDirectory(f.Teams), nil
}

// TeamForEmail returns nil when the email is unknown.
func (d *TeamDirectory) TeamForEmail(email string) *string {
	if d == nil {
		return nil
	}
	team, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return nil
	}
	return &team
}

func (d *TeamDirectory) Len() int {
	return len(d.byEmail)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
