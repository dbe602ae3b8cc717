package security

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

var ErrGoogleToken = errors.New("invalid google token")

// GoogleIdentity is what the app trusts from a validated Google ID token
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifier validates Google ID tokens against the app's client ID
type GoogleVerifier struct {
	ClientID string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{ClientID: clientID}
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (*GoogleIdentity, error) {
	if token == "" {
		return nil, ErrGoogleToken
	}

	payload, err := idtoken.Validate(ctx, token, g.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrGoogleToken, err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, ErrGoogleToken
	}

	name, _ := payload.Claims["name"].(string)

	return &GoogleIdentity{
		Subject: payload.Subject,
		Email:   email,
		Name:    name,
	}, nil
}
