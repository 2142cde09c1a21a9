package oauth

import "github.com/BradenHooton/autentica/internal/models"

// Provider describes one OAuth2 identity provider
type Provider struct {
	AuthURL       string
	TokenURL      string
	UserInfoURL   string
	DefaultScopes []string
	// ScopeSeparator joins scopes in the authorization URL
	ScopeSeparator string
}

var defaultProviders = map[models.Provider]Provider{
	models.ProviderGoogle: {
		AuthURL:        "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:       "https://oauth2.googleapis.com/token",
		UserInfoURL:    "https://www.googleapis.com/oauth2/v3/userinfo",
		DefaultScopes:  []string{"openid", "email", "profile"},
		ScopeSeparator: " ",
	},
	models.ProviderMicrosoft: {
		AuthURL:        "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		TokenURL:       "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		UserInfoURL:    "https://graph.microsoft.com/v1.0/me",
		DefaultScopes:  []string{"openid", "email", "profile", "offline_access", "User.Read"},
		ScopeSeparator: " ",
	},
	models.ProviderGitHub: {
		AuthURL:        "https://github.com/login/oauth/authorize",
		TokenURL:       "https://github.com/login/oauth/access_token",
		UserInfoURL:    "https://api.github.com/user",
		DefaultScopes:  []string{"read:user", "user:email"},
		ScopeSeparator: " ",
	},
	models.ProviderFacebook: {
		AuthURL:        "https://www.facebook.com/v18.0/dialog/oauth",
		TokenURL:       "https://graph.facebook.com/v18.0/oauth/access_token",
		UserInfoURL:    "https://graph.facebook.com/me?fields=id,name,email,first_name,last_name,picture",
		DefaultScopes:  []string{"email", "public_profile"},
		ScopeSeparator: ",",
	},
}

// DefaultProviders returns a copy of the built-in provider table
func DefaultProviders() map[models.Provider]Provider {
	out := make(map[models.Provider]Provider, len(defaultProviders))
	for k, v := range defaultProviders {
		out[k] = v
	}
	return out
}
