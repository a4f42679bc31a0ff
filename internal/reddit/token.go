package reddit

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/soapboxhq/soapbox/internal/config"
	"github.com/soapboxhq/soapbox/internal/credentials"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

// NewTokenSource builds an oauth2 token source from a user's stored
// credentials. Script-style apps with a stored username/password use the
// password grant; otherwise the two-legged client-credentials grant is used.
// Tokens are cached and refreshed via oauth2.ReuseTokenSource.
func NewTokenSource(ctx context.Context, cfg config.RedditConfig, provider credentials.Provider, userID string) (oauth2.TokenSource, error) {
	clientID, err := provider.Get(userID, models.PlatformReddit, models.CredentialClientID)
	if err != nil {
		return nil, err
	}
	clientSecret, err := provider.Get(userID, models.PlatformReddit, models.CredentialClientSecret)
	if err != nil {
		return nil, err
	}

	username, uerr := provider.Get(userID, models.PlatformReddit, models.CredentialUsername)
	if uerr == nil && username != "" {
		password, perr := provider.Get(userID, models.PlatformReddit, models.CredentialPassword)
		if perr != nil {
			return nil, soaperr.Wrap(soaperr.KindAuth, perr, "username stored without password")
		}
		src := &passwordTokenSource{
			ctx:      ctx,
			username: username,
			password: password,
			conf: &oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
			},
		}
		return oauth2.ReuseTokenSource(nil, src), nil
	}

	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return cc.TokenSource(ctx), nil
}

// passwordTokenSource re-runs the password grant whenever the cached token
// expires; the grant does not return a refresh token.
type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
	if err != nil {
		return nil, soaperr.Wrap(soaperr.KindAuth, err, "reddit token exchange failed")
	}
	return tok, nil
}
