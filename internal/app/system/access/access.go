// Package access decides whether an email address may be invited to a
// project and whether it accepts notification mail.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"github.com/dalemusser/projecthub/internal/app/system/normalize"
	"github.com/dalemusser/projecthub/internal/domain/models"
)

// UserLookup finds directory entries by email. It returns
// userstore.ErrNotFound for unknown addresses.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Result is the provisioning outcome for one address.
type Result struct {
	Email              string
	Provisioned        bool
	AcceptNotification bool
}

// Provisioner grants invite access by domain whitelist.
type Provisioner struct {
	users   UserLookup
	domains map[string]struct{}
}

// New builds a Provisioner. An empty domain list allows every domain.
func New(users UserLookup, allowedDomains []string) *Provisioner {
	domains := make(map[string]struct{}, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(d), "@")))
		if d != "" {
			domains[d] = struct{}{}
		}
	}
	return &Provisioner{users: users, domains: domains}
}

// ParseDomains splits a comma separated domain list.
func ParseDomains(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (p *Provisioner) allowed(email string) bool {
	if len(p.domains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	_, ok := p.domains[email[at+1:]]
	return ok
}

// InviteUsers provisions each address. Known users who are guests are not
// provisioned; known users who opted out of mail are provisioned without
// notification.
func (p *Provisioner) InviteUsers(ctx context.Context, emails []string) ([]Result, error) {
	out := make([]Result, 0, len(emails))
	for _, raw := range emails {
		email := normalize.Email(raw)
		res := Result{Email: email}
		if !p.allowed(email) {
			out = append(out, res)
			continue
		}

		u, err := p.users.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, userstore.ErrNotFound):
			res.Provisioned = true
			res.AcceptNotification = true
		case err != nil:
			return nil, fmt.Errorf("lookup %s: %w", email, err)
		case normalize.Role(u.Role) == models.UserRoleGuest:
		default:
			res.Provisioned = true
			res.AcceptNotification = !u.NotifyOptOut
		}
		out = append(out, res)
	}
	return out, nil
}
