package app

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const removalLinkTTL = 30 * 24 * time.Hour

// RemovalLinks builds the signed link involved staff follow to ask to be removed from a report.
type RemovalLinks struct {
	baseURL string
	secret  []byte
	clock   Clock
}

func NewRemovalLinks(baseURL, secret string, clock Clock) *RemovalLinks {
	return &RemovalLinks{baseURL: baseURL, secret: []byte(secret), clock: clock}
}

// Link returns {base}/request-removal/{statementID}?token=<jwt>.
func (l *RemovalLinks) Link(statementID int64) (string, error) {
	now := l.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(statementID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(removalLinkTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign removal link for statement %d: %w", statementID, err)
	}

	link, err := url.JoinPath(l.baseURL, "request-removal", strconv.FormatInt(statementID, 10))
	if err != nil {
		return "", fmt.Errorf("failed to build removal link: %w", err)
	}
	return link + "?token=" + url.QueryEscape(token), nil
}

// VerifyRemovalToken checks a token produced by Link and returns the statement id it was issued for.
func (l *RemovalLinks) VerifyRemovalToken(token string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return l.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(l.clock.Now))
	if err != nil {
		return 0, fmt.Errorf("invalid removal token: %w", err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid statement id %q in removal token: %w", claims.Subject, err)
	}
	return id, nil
}
