package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"use_of_force/internal/domain/identity"

	"github.com/Nerzal/gocloak/v13"
	"github.com/sirupsen/logrus"
)

// A cached token is refreshed this long before Keycloak would expire it.
const tokenExpiryMargin = 30 * time.Second

type Args struct {
	ServerURL    string
	Realm        string
	ClientID     string
	ClientSecret string
}

// Directory looks staff up in a Keycloak realm. It is both the identity.Service and, through a
// client-credentials login, the identity.TokenSupplier.
type Directory struct {
	keycloak *gocloak.GoCloak
	args     Args
	logger   *logrus.Entry

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

var (
	_ identity.Service       = (*Directory)(nil)
	_ identity.TokenSupplier = (*Directory)(nil)
)

func NewDirectory(args Args, logger *logrus.Entry) *Directory {
	client := gocloak.NewClient(strings.TrimSuffix(args.ServerURL, "/"))
	client.RestyClient().SetTimeout(10 * time.Second)

	return &Directory{
		keycloak: client,
		args:     args,
		logger:   logger.WithFields(logrus.Fields{"component": "keycloak", "realm": args.Realm}),
		now:      time.Now,
	}
}

// SystemToken returns a service-account access token, logging in again once the cached one is close to expiry.
func (d *Directory) SystemToken(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.token != "" && d.now().Before(d.expiresAt) {
		return d.token, nil
	}

	jwt, err := d.keycloak.LoginClient(ctx, d.args.ClientID, d.args.ClientSecret, d.args.Realm)
	if err != nil {
		return "", fmt.Errorf("error during keycloak client login: %w", err)
	}

	d.token = jwt.AccessToken
	d.expiresAt = d.now().Add(time.Duration(jwt.ExpiresIn)*time.Second - tokenExpiryMargin)
	d.logger.Debug("Obtained system token")
	return d.token, nil
}

func (d *Directory) GetUser(ctx context.Context, username, token string) (*identity.User, error) {
	users, err := d.keycloak.GetUsers(ctx, token, d.args.Realm, gocloak.GetUsersParams{
		Username: gocloak.StringP(username),
		Exact:    gocloak.BoolP(true),
	})
	if err != nil {
		if isUnauthorized(err) {
			d.invalidate()
		}
		return nil, fmt.Errorf("error looking up user %s in keycloak: %w", username, err)
	}

	for _, u := range users {
		if u == nil || !strings.EqualFold(gocloak.PString(u.Username), username) {
			continue
		}
		return &identity.User{
			Username: gocloak.PString(u.Username),
			Name:     strings.TrimSpace(gocloak.PString(u.FirstName) + " " + gocloak.PString(u.LastName)),
			Email: identity.Email{
				Verified: gocloak.PBool(u.EmailVerified),
				Address:  gocloak.PString(u.Email),
			},
		}, nil
	}
	return nil, identity.ErrUserNotFound
}

// GetEmail treats an unknown user as one without a verified address.
func (d *Directory) GetEmail(ctx context.Context, username, token string) (identity.Email, error) {
	user, err := d.GetUser(ctx, username, token)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return identity.Email{}, nil
		}
		return identity.Email{}, err
	}
	return user.Email, nil
}

func (d *Directory) invalidate() {
	d.mu.Lock()
	d.token = ""
	d.mu.Unlock()
}

func isUnauthorized(err error) bool {
	var apiErr *gocloak.APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized
}
