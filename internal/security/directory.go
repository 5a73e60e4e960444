package security

import (
	"context"
	"fmt"
	"strings"

	"github.com/workos/workos-go/v4/pkg/usermanagement"
)

// DirectoryUser is the profile returned by the identity provider.
type DirectoryUser struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// Directory looks up users by id at the identity provider.
type Directory interface {
	LookupUser(ctx context.Context, userID string) (DirectoryUser, error)
}

// WorkOSDirectory resolves users through the WorkOS user management API.
type WorkOSDirectory struct {
	client *usermanagement.Client
}

// NewWorkOSDirectory returns nil when apiKey is empty. endpoint overrides the
// API base URL when non-empty.
func NewWorkOSDirectory(apiKey, endpoint string) *WorkOSDirectory {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	client := usermanagement.NewClient(apiKey)
	if endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/"); endpoint != "" {
		client.Endpoint = endpoint
	}
	return &WorkOSDirectory{client: client}
}

// LookupUser implements Directory.
func (d *WorkOSDirectory) LookupUser(ctx context.Context, userID string) (DirectoryUser, error) {
	user, err := d.client.GetUser(ctx, usermanagement.GetUserOpts{User: userID})
	if err != nil {
		return DirectoryUser{}, fmt.Errorf("workos: get user %s: %w", userID, err)
	}
	return DirectoryUser{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// AllowList is the set of admin emails, compared case-insensitively.
type AllowList struct {
	emails map[string]struct{}
}

// NewAllowList builds an allow-list, ignoring blank entries.
func NewAllowList(emails []string) *AllowList {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = struct{}{}
		}
	}
	return &AllowList{emails: set}
}

// Contains reports whether email is an admin.
func (a *AllowList) Contains(email string) bool {
	if a == nil {
		return false
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	_, ok := a.emails[email]
	return ok
}

// Len returns the number of admins.
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.emails)
}
