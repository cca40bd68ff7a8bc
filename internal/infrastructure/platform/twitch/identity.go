package twitchinfra

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nicklaw5/helix/v2"
)

// Identity resuelve usuarios de Twitch contra la API de Helix.
type Identity struct {
	client *helix.Client
}

// clientID: el de tu app de Twitch
// accessToken: un token de usuario válido para la app
func NewIdentity(clientID, accessToken string) (*Identity, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("twitch client id vacío")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, fmt.Errorf("twitch access token vacío")
	}

	client, err := helix.NewClient(&helix.Options{
		ClientID:        clientID,
		UserAccessToken: accessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("helix: NewClient: %w", err)
	}

	return &Identity{client: client}, nil
}

// UserID devuelve el ID numérico del usuario con ese login.
func (s *Identity) UserID(ctx context.Context, username string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", fmt.Errorf("twitch username vacío")
	}

	resp, err := s.client.GetUsers(&helix.UsersParams{
		Logins: []string{username},
	})
	if err != nil {
		return "", fmt.Errorf("helix: GetUsers: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("helix: GetUsers failed (%d: %s) %s",
			resp.StatusCode, resp.Error, resp.ErrorMessage)
	}

	if len(resp.Data.Users) == 0 {
		return "", fmt.Errorf("usuario de Twitch no encontrado: %s", username)
	}

	return resp.Data.Users[0].ID, nil
}
