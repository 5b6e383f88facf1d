package clearance_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zatca-gateway/internal/canon"
	"github.com/jhoicas/zatca-gateway/internal/clearance"
	"github.com/jhoicas/zatca-gateway/internal/domain"
	"github.com/jhoicas/zatca-gateway/internal/domain/entity"
	"github.com/jhoicas/zatca-gateway/internal/gcrypto"
	"github.com/jhoicas/zatca-gateway/internal/pih"
	"github.com/jhoicas/zatca-gateway/internal/xmlstream"
)

// ──────────────────────────────────────────────────────────────────────────
// In-memory InvoiceRepository
// ──────────────────────────────────────────────────────────────────────────

type fakeInvoiceRepository struct {
	latestByCompany map[string][]byte
	byUUID          map[string]entity.Invoice
}

func newFakeInvoiceRepository() *fakeInvoiceRepository {
	return &fakeInvoiceRepository{
		latestByCompany: make(map[string][]byte),
		byUUID:          make(map[string]entity.Invoice),
	}
}

func (r *fakeInvoiceRepository) Create(_ context.Context, inv entity.Invoice) error {
	r.latestByCompany[inv.Company] = inv.Hash
	r.byUUID[inv.UUID] = inv
	return nil
}

func (r *fakeInvoiceRepository) LatestHashForCompany(_ context.Context, companyID string) ([]byte, bool, error) {
	h, ok := r.latestByCompany[companyID]
	return h, ok, nil
}

func (r *fakeInvoiceRepository) ListByCompanyPage(_ context.Context, limit, offset int) ([]entity.Invoice, int, error) {
	return nil, len(r.byUUID), nil
}

func (r *fakeInvoiceRepository) FindByUUID(_ context.Context, id string) (entity.Invoice, bool, error) {
	inv, ok := r.byUUID[id]
	return inv, ok, nil
}

// ──────────────────────────────────────────────────────────────────────────
// Fixture building
// ──────────────────────────────────────────────────────────────────────────

const invoiceTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2" xmlns:cac="cac" xmlns:cbc="cbc" xmlns:ds="ds">
  <cbc:ID>SME00062</cbc:ID>
  <cac:AdditionalDocumentReference>
    <cbc:ID>PIH</cbc:ID>
    <cac:Attachment><cbc:EmbeddedDocumentBinaryObject>%s</cbc:EmbeddedDocumentBinaryObject></cac:Attachment>
  </cac:AdditionalDocumentReference>
  <cac:AccountingCustomerParty>
    <cac:Party>
      <cac:PartyTaxScheme>
        <cbc:CompanyID>%s</cbc:CompanyID>
      </cac:PartyTaxScheme>
    </cac:Party>
  </cac:AccountingCustomerParty>
  <cac:UBLExtensions>
    <cac:UBLExtension>
      <cac:ExtensionContent>
        <ds:Signature Id="signature">
          <ds:SignedInfo>
            <ds:Reference Id="invoiceSignedData"><ds:DigestValue>PLACEHOLDER</ds:DigestValue></ds:Reference>
            <ds:Reference Type="http://www.w3.org/2000/09/xmldsig#SignatureProperties"><ds:DigestValue>PLACEHOLDER</ds:DigestValue></ds:Reference>
          </ds:SignedInfo>
          <ds:SignatureValue>%s</ds:SignatureValue>
          <ds:KeyInfo><ds:X509Data><ds:X509Certificate>%s</ds:X509Certificate></ds:X509Data></ds:KeyInfo>
          <ds:Object>
            <xades:QualifyingProperties xmlns:xades="xades">
              <xades:SignedProperties Id="xadesSignedProperties">
                <xades:SignedSignatureProperties>
                  <xades:SigningTime>2024-01-01T00:00:00Z</xades:SigningTime>
                </xades:SignedSignatureProperties>
              </xades:SignedProperties>
            </xades:QualifyingProperties>
          </ds:Object>
        </ds:Signature>
      </cac:ExtensionContent>
    </cac:UBLExtension>
  </cac:UBLExtensions>
</Invoice>`

func bootstrapPIHB64() string {
	h := gcrypto.ComputeHash([]byte("0"))
	return base64.StdEncoding.EncodeToString(h[:])
}

func issueLeaf(t *testing.T, ca *entity.CAMaterial, companyID string) (*ecdsa.PrivateKey, *x509.Certificate) {
	t.Helper()
	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	csrTemplate := &x509.CertificateRequest{
		Subject:            pkix.Name{CommonName: "TST-" + companyID, SerialNumber: companyID},
		SignatureAlgorithm: x509.ECDSAWithSHA256,
	}
	csrDER, err := x509.CreateCertificateRequest(rand.Reader, csrTemplate, leafKey)
	require.NoError(t, err)
	csr, err := gcrypto.ParseCSR(csrDER)
	require.NoError(t, err)

	leafDER, err := gcrypto.IssueCertificate(ca, csr)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(leafDER)
	require.NoError(t, err)

	return leafKey, leaf
}

// buildSignedInvoice produces a raw invoice document whose canonical-subset
// hash and embedded signature are mutually consistent, the way a taxpayer's
// ERP would have produced them before submission.
func buildSignedInvoice(t *testing.T, companyID, pihB64 string, leafKey *ecdsa.PrivateKey, leaf *x509.Certificate) (rawXML []byte, expectedHash []byte) {
	t.Helper()
	certB64 := base64.StdEncoding.EncodeToString(leaf.Raw)

	draft := []byte(fmt.Sprintf(invoiceTemplate, pihB64, companyID, "PLACEHOLDER", certB64))

	subset, err := xmlstream.ExtractInvoiceSubset(draft)
	require.NoError(t, err)
	canonical, err := (canon.C14N11{}).Canonicalize(subset)
	require.NoError(t, err)
	hash := gcrypto.ComputeHash(canonical)

	sig, err := gcrypto.SignDigest(&entity.CAMaterial{PrivateKey: leafKey}, hash[:])
	require.NoError(t, err)
	sigB64 := base64.StdEncoding.EncodeToString(sig)

	final := []byte(fmt.Sprintf(invoiceTemplate, pihB64, companyID, sigB64, certB64))
	return final, hash[:]
}

func newEngine(ca *entity.CAMaterial) *clearance.Engine {
	return clearance.NewEngine(ca, canon.C14N11{}, pih.NewLocker())
}

// ──────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────

func TestClear_HappyPath_FirstInvoiceChainsToBootstrap(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)
	leafKey, leaf := issueLeaf(t, ca, "399999999900003")

	raw, expectedHash := buildSignedInvoice(t, "399999999900003", bootstrapPIHB64(), leafKey, leaf)

	repo := newFakeInvoiceRepository()
	eng := newEngine(ca)

	result, err := eng.Clear(context.Background(), uuid.NewString(), expectedHash, raw, repo)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ClearedInvoiceXML)
	assert.Equal(t, expectedHash, result.InvoiceHash)
	assert.Contains(t, string(result.ClearedInvoiceXML), "<xades:SigningTime>")
	assert.NotContains(t, string(result.ClearedInvoiceXML), "PLACEHOLDER")
}

func TestClear_SecondInvoiceChainsToFirst(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)
	leafKey, leaf := issueLeaf(t, ca, "399999999900003")

	repo := newFakeInvoiceRepository()
	eng := newEngine(ca)

	raw1, hash1 := buildSignedInvoice(t, "399999999900003", bootstrapPIHB64(), leafKey, leaf)
	_, err = eng.Clear(context.Background(), uuid.NewString(), hash1, raw1, repo)
	require.NoError(t, err)

	raw2, hash2 := buildSignedInvoice(t, "399999999900003", base64.StdEncoding.EncodeToString(hash1), leafKey, leaf)
	result2, err := eng.Clear(context.Background(), uuid.NewString(), hash2, raw2, repo)
	require.NoError(t, err, "the second invoice's PIH must chain to the first invoice's hash")
	assert.Equal(t, hash2, result2.InvoiceHash)
}

func TestClear_HashMismatch(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)
	leafKey, leaf := issueLeaf(t, ca, "399999999900003")

	raw, _ := buildSignedInvoice(t, "399999999900003", bootstrapPIHB64(), leafKey, leaf)
	wrongHash := gcrypto.ComputeHash([]byte("not the real canonical subset"))

	repo := newFakeInvoiceRepository()
	eng := newEngine(ca)

	_, err = eng.Clear(context.Background(), uuid.NewString(), wrongHash[:], raw, repo)
	assert.ErrorIs(t, err, domain.ErrHashMismatch)
}

func TestClear_InvalidCertificate_NotIssuedByThisCA(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)
	otherCA, err := gcrypto.GenerateCAMaterial("Unrelated CA")
	require.NoError(t, err)

	leafKey, leaf := issueLeaf(t, otherCA, "399999999900003")
	raw, expectedHash := buildSignedInvoice(t, "399999999900003", bootstrapPIHB64(), leafKey, leaf)

	repo := newFakeInvoiceRepository()
	eng := newEngine(ca) // engine trusts ca, but the leaf was issued by otherCA

	_, err = eng.Clear(context.Background(), uuid.NewString(), expectedHash, raw, repo)
	assert.ErrorIs(t, err, domain.ErrInvalidCertificate)
}

func TestClear_InvalidSignature(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)
	_, leaf := issueLeaf(t, ca, "399999999900003")

	// Sign with a key unrelated to the embedded certificate.
	wrongKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	certB64 := base64.StdEncoding.EncodeToString(leaf.Raw)
	draft := []byte(fmt.Sprintf(invoiceTemplate, bootstrapPIHB64(), "399999999900003", "PLACEHOLDER", certB64))
	subset, err := xmlstream.ExtractInvoiceSubset(draft)
	require.NoError(t, err)
	canonical, err := (canon.C14N11{}).Canonicalize(subset)
	require.NoError(t, err)
	hash := gcrypto.ComputeHash(canonical)

	sig, err := gcrypto.SignDigest(&entity.CAMaterial{PrivateKey: wrongKey}, hash[:])
	require.NoError(t, err)
	sigB64 := base64.StdEncoding.EncodeToString(sig)
	raw := []byte(fmt.Sprintf(invoiceTemplate, bootstrapPIHB64(), "399999999900003", sigB64, certB64))

	repo := newFakeInvoiceRepository()
	eng := newEngine(ca)

	_, err = eng.Clear(context.Background(), uuid.NewString(), hash[:], raw, repo)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestClear_PihMismatch(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)
	leafKey, leaf := issueLeaf(t, ca, "399999999900003")

	repo := newFakeInvoiceRepository()
	eng := newEngine(ca)

	raw1, hash1 := buildSignedInvoice(t, "399999999900003", bootstrapPIHB64(), leafKey, leaf)
	_, err = eng.Clear(context.Background(), uuid.NewString(), hash1, raw1, repo)
	require.NoError(t, err)

	// Second invoice wrongly claims to chain from bootstrap again, instead
	// of from the first invoice's hash.
	raw2, hash2 := buildSignedInvoice(t, "399999999900003", bootstrapPIHB64(), leafKey, leaf)
	_, err = eng.Clear(context.Background(), uuid.NewString(), hash2, raw2, repo)
	assert.ErrorIs(t, err, domain.ErrPihMismatch)
}

func TestClear_MalformedUUID(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)
	leafKey, leaf := issueLeaf(t, ca, "399999999900003")
	raw, expectedHash := buildSignedInvoice(t, "399999999900003", bootstrapPIHB64(), leafKey, leaf)

	repo := newFakeInvoiceRepository()
	eng := newEngine(ca)

	_, err = eng.Clear(context.Background(), "not-a-uuid", expectedHash, raw, repo)
	assert.ErrorIs(t, err, domain.ErrMalformedEnvelope)
}

func TestClear_MalformedXML(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)

	repo := newFakeInvoiceRepository()
	eng := newEngine(ca)

	_, err = eng.Clear(context.Background(), uuid.NewString(), []byte{0x01}, []byte("<not-xml"), repo)
	assert.ErrorIs(t, err, domain.ErrMalformedXML)
}

// Clear's resign step must overwrite both SignedInfo DigestValue placeholders
// and the SignatureValue, regardless of what the submitted document carried.
func TestClear_ResignOverwritesDigestPlaceholders(t *testing.T) {
	ca, err := gcrypto.GenerateCAMaterial("Test CA")
	require.NoError(t, err)
	leafKey, leaf := issueLeaf(t, ca, "399999999900003")
	raw, expectedHash := buildSignedInvoice(t, "399999999900003", bootstrapPIHB64(), leafKey, leaf)
	require.True(t, bytes.Contains(raw, []byte("PLACEHOLDER")), "fixture must start with digest placeholders")

	repo := newFakeInvoiceRepository()
	eng := newEngine(ca)

	result, err := eng.Clear(context.Background(), uuid.NewString(), expectedHash, raw, repo)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(result.ClearedInvoiceXML, []byte("PLACEHOLDER")))
}
