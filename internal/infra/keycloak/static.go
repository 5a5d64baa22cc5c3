package keycloak

import (
	"context"
	"fmt"
	"os"
	"strings"

	"use_of_force/internal/domain/identity"

	"gopkg.in/yaml.v3"
)

// StaticDirectory serves a fixed set of users. It stands in for Keycloak when none is configured;
// users it does not list have no verified address and reminders for them are deferred.
type StaticDirectory struct {
	users map[string]identity.User
}

func NewStaticDirectory(users []identity.User) *StaticDirectory {
	d := &StaticDirectory{users: make(map[string]identity.User, len(users))}
	for _, u := range users {
		d.users[strings.ToUpper(u.Username)] = u
	}
	return d
}

func (d *StaticDirectory) SystemToken(ctx context.Context) (string, error) {
	return "static", nil
}

func (d *StaticDirectory) GetUser(ctx context.Context, username, token string) (*identity.User, error) {
	u, ok := d.users[strings.ToUpper(username)]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return &u, nil
}

func (d *StaticDirectory) GetEmail(ctx context.Context, username, token string) (identity.Email, error) {
	u, ok := d.users[strings.ToUpper(username)]
	if !ok {
		return identity.Email{}, nil
	}
	return u.Email, nil
}

type staticUser struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Verified bool   `yaml:"verified"`
}

// LoadStaticDirectory reads a YAML list of users. An empty path gives an empty directory.
func LoadStaticDirectory(path string) (*StaticDirectory, error) {
	if path == "" {
		return NewStaticDirectory(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read staff directory %s: %w", path, err)
	}

	var entries []staticUser
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse staff directory %s: %w", path, err)
	}

	users := make([]identity.User, 0, len(entries))
	for i, e := range entries {
		if e.Username == "" {
			return nil, fmt.Errorf("staff directory %s: entry %d has no username", path, i)
		}
		users = append(users, identity.User{
			Username: e.Username,
			Name:     e.Name,
			Email:    identity.Email{Verified: e.Verified, Address: e.Email},
		})
	}
	return NewStaticDirectory(users), nil
}
