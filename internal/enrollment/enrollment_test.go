package enrollment_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zatca-gateway/internal/domain"
	"github.com/jhoicas/zatca-gateway/internal/domain/entity"
	"github.com/jhoicas/zatca-gateway/internal/enrollment"
	"github.com/jhoicas/zatca-gateway/internal/gcrypto"
)

// fakeChallengeRepository is an in-memory stand-in for
// postgres.ChallengeRepository, sufficient for the engine's own logic.
type fakeChallengeRepository struct {
	byHash map[string]*entity.CSRChallenge
}

func newFakeChallengeRepository() *fakeChallengeRepository {
	return &fakeChallengeRepository{byHash: make(map[string]*entity.CSRChallenge)}
}

func (f *fakeChallengeRepository) Create(_ context.Context, c entity.CSRChallenge) error {
	cc := c
	f.byHash[string(c.TokenHash)] = &cc
	return nil
}

func (f *fakeChallengeRepository) FindUnexpiredUnused(_ context.Context, companyID string) (entity.CSRChallenge, bool, error) {
	now := time.Now()
	for _, c := range f.byHash {
		if c.CompanyID == companyID && c.Usable(now) {
			return *c, true, nil
		}
	}
	return entity.CSRChallenge{}, false, nil
}

func (f *fakeChallengeRepository) MarkUsed(_ context.Context, tokenHash []byte) error {
	c, ok := f.byHash[string(tokenHash)]
	if !ok {
		return nil
	}
	now := time.Now()
	c.UsedAt = &now
	return nil
}

func buildCSR(t *testing.T, companyID string) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.CertificateRequest{
		Subject:            pkix.Name{CommonName: "TST-" + companyID, SerialNumber: companyID},
		SignatureAlgorithm: x509.ECDSAWithSHA256,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	require.NoError(t, err)
	return der
}

func TestEnroll_HappyPath(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)

	repo := newFakeChallengeRepository()
	eng := enrollment.NewEngine(repo, ca, time.Hour)

	token, err := eng.IssueToken(context.Background(), "399999999900003")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	certPEM, err := eng.Enroll(context.Background(), token, buildCSR(t, "399999999900003"))
	require.NoError(t, err)
	assert.Contains(t, string(certPEM), "BEGIN CERTIFICATE")
}

func TestEnroll_TokenMismatch(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)

	repo := newFakeChallengeRepository()
	eng := enrollment.NewEngine(repo, ca, time.Hour)

	_, err = eng.IssueToken(context.Background(), "399999999900003")
	require.NoError(t, err)

	_, err = eng.Enroll(context.Background(), "399999999900003:wrong-token", buildCSR(t, "399999999900003"))
	assert.ErrorIs(t, err, domain.ErrTokenMismatch)
}

func TestEnroll_NoChallengeForCompany(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)

	repo := newFakeChallengeRepository()
	eng := enrollment.NewEngine(repo, ca, time.Hour)

	_, err = eng.Enroll(context.Background(), "some-token", buildCSR(t, "never-onboarded"))
	assert.ErrorIs(t, err, domain.ErrTokenMismatch)
}

// TestEnroll_TokenCannotBeReplayed verifies a token consumed by one
// successful enrollment is rejected by a second attempt (challenge marked
// used).
func TestEnroll_TokenCannotBeReplayed(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)

	repo := newFakeChallengeRepository()
	eng := enrollment.NewEngine(repo, ca, time.Hour)

	token, err := eng.IssueToken(context.Background(), "399999999900003")
	require.NoError(t, err)

	csrDER := buildCSR(t, "399999999900003")
	_, err = eng.Enroll(context.Background(), token, csrDER)
	require.NoError(t, err)

	_, err = eng.Enroll(context.Background(), token, csrDER)
	assert.ErrorIs(t, err, domain.ErrTokenMismatch, "a used token must not be redeemable twice")
}

func TestEnroll_InvalidCSR(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)

	repo := newFakeChallengeRepository()
	eng := enrollment.NewEngine(repo, ca, time.Hour)

	_, err = eng.Enroll(context.Background(), "whatever", []byte("not a csr"))
	assert.ErrorIs(t, err, domain.ErrInvalidCSR)
}

func TestIssueToken_ProducesUniqueTokens(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)

	repo := newFakeChallengeRepository()
	eng := enrollment.NewEngine(repo, ca, time.Hour)

	t1, err := eng.IssueToken(context.Background(), "company-a")
	require.NoError(t, err)
	t2, err := eng.IssueToken(context.Background(), "company-a")
	require.NoError(t, err)

	assert.False(t, bytes.Equal([]byte(t1), []byte(t2)), "two issued tokens must not collide")
}
