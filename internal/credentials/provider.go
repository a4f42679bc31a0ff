// Package credentials resolves stored platform secrets for outbound calls.
package credentials

import (
	"time"

	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/repository"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

// Provider hands out secret values for a (user, platform, kind) triple.
// Missing, invalidated, or expired credentials surface as auth errors so
// callers can fail the whole pass instead of retrying per item.
type Provider interface {
	Get(userID string, platform models.Platform, kind models.CredentialKind) (string, error)
	Invalidate(userID string, platform models.Platform, kind models.CredentialKind) error
}

// StoreProvider reads credentials from the repository.
type StoreProvider struct {
	repo *repository.CredentialRepository
	now  func() time.Time
}

func NewStoreProvider(repo *repository.CredentialRepository) *StoreProvider {
	return &StoreProvider{repo: repo, now: time.Now}
}

func (p *StoreProvider) Get(userID string, platform models.Platform, kind models.CredentialKind) (string, error) {
	c, err := p.repo.Get(userID, platform, kind)
	if err != nil {
		return "", soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load credential %s/%s", platform, kind)
	}
	if c == nil {
		return "", soaperr.E(soaperr.KindAuth, "no %s credential of kind %s for user %s", platform, kind, userID)
	}
	if !c.Valid {
		return "", soaperr.E(soaperr.KindAuth, "%s credential of kind %s was invalidated", platform, kind)
	}
	if c.Expired(p.now()) {
		return "", soaperr.E(soaperr.KindAuth, "%s credential of kind %s expired at %s", platform, kind, c.ExpiresAt.Format(time.RFC3339))
	}
	return c.Value, nil
}

// Invalidate marks a credential invalid after a platform rejected it.
func (p *StoreProvider) Invalidate(userID string, platform models.Platform, kind models.CredentialKind) error {
	return p.repo.SetValid(userID, platform, kind, false)
}
