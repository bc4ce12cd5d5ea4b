package auth

import (
	"fmt"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Certificate  string
	Organization string
	Application  string
}

// CasdoorVerifier accepts Casdoor-issued tokens for administrators only.
// Students always authenticate against the roster.
type CasdoorVerifier struct {
	client *casdoorsdk.Client
}

func NewCasdoorVerifier(cfg CasdoorConfig) *CasdoorVerifier {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
	return &CasdoorVerifier{client: client}
}

func (v *CasdoorVerifier) Verify(token string) (*Principal, error) {
	claims, err := v.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: casdoor: %v", ErrInvalidToken, err)
	}

	role := roleFromCasdoor(claims.User.IsAdmin, claims.User.Type)
	if role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: casdoor user %s is not an administrator", ErrInvalidToken, claims.User.Name)
	}

	subject := claims.User.Name
	if subject == "" {
		subject = claims.Subject
	}
	return &Principal{Subject: subject, Email: claims.User.Email, Role: role}, nil
}

// roleFromCasdoor maps Casdoor user type to internal role
func roleFromCasdoor(isAdmin bool, casdoorType string) models.UserRole {
	if isAdmin {
		return models.RoleAdmin
	}
	switch strings.ToLower(casdoorType) {
	case "admin", "administrator":
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}
