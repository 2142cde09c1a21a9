package oauth

import (
	"encoding/json"
	"strings"

	"github.com/BradenHooton/autentica/internal/models"
)

// Profile is a provider user normalized to one shape
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

// normalizeProfile maps provider-specific field names onto Profile
func normalizeProfile(provider models.Provider, raw map[string]any) *Profile {
	p := &Profile{}

	switch provider {
	case models.ProviderGoogle:
		p.ID = field(raw, "sub", "id")
		p.Email = field(raw, "email")
		p.Name = field(raw, "name")
		p.FirstName = field(raw, "given_name")
		p.LastName = field(raw, "family_name")
		p.Avatar = field(raw, "picture")
	case models.ProviderMicrosoft:
		p.ID = field(raw, "id")
		p.Email = field(raw, "mail", "userPrincipalName")
		p.Name = field(raw, "displayName")
		p.FirstName = field(raw, "givenName")
		p.LastName = field(raw, "surname")
	case models.ProviderGitHub:
		p.ID = field(raw, "id")
		p.Email = field(raw, "email")
		p.Name = field(raw, "name", "login")
		p.Avatar = field(raw, "avatar_url")
	case models.ProviderFacebook:
		p.ID = field(raw, "id")
		p.Email = field(raw, "email")
		p.Name = field(raw, "name")
		p.FirstName = field(raw, "first_name")
		p.LastName = field(raw, "last_name")
		if picture, ok := raw["picture"].(map[string]any); ok {
			if data, ok := picture["data"].(map[string]any); ok {
				p.Avatar = field(data, "url")
			}
		}
	}

	if p.FirstName == "" && p.LastName == "" && p.Name != "" {
		p.FirstName, p.LastName = splitName(p.Name)
	}

	return p
}

// field returns the first non-empty value among keys, rendering numbers as text
func field(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
