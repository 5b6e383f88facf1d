// Package gcrypto implements the fixed ECDSA+SHA-256 crypto suite the
// clearance and enrollment pipelines use: hashing, signature
// verify/produce, certificate chain validation, and CSR-backed certificate
// issuance by the gateway's own CA.
package gcrypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/jhoicas/zatca-gateway/internal/domain"
	"github.com/jhoicas/zatca-gateway/internal/domain/entity"
)

// LoadCAMaterial decodes the gateway's own CA keypair from base64-encoded
// PEM blocks (a PKCS#8 "PRIVATE KEY" and a "CERTIFICATE"), as configured via
// SEC_PRIVATE_KEY/SEC_CERTIFICATE.
func LoadCAMaterial(privateKeyB64, certificateB64 []byte) (*entity.CAMaterial, error) {
	keyPEM, err := base64.StdEncoding.DecodeString(string(privateKeyB64))
	if err != nil {
		return nil, fmt.Errorf("%w: private key material is not base64: %v", domain.ErrCaUnavailable, err)
	}
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("%w: no PEM block in private key material", domain.ErrCaUnavailable)
	}
	parsedKey, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse ca private key: %v", domain.ErrCaUnavailable, err)
	}
	key, ok := parsedKey.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: ca private key is not ECDSA", domain.ErrCaUnavailable)
	}

	certPEM, err := base64.StdEncoding.DecodeString(string(certificateB64))
	if err != nil {
		return nil, fmt.Errorf("%w: certificate material is not base64: %v", domain.ErrCaUnavailable, err)
	}
	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, fmt.Errorf("%w: no PEM block in certificate material", domain.ErrCaUnavailable)
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse ca certificate: %v", domain.ErrCaUnavailable, err)
	}

	return &entity.CAMaterial{PrivateKey: key, Certificate: cert}, nil
}

// ComputeHash returns the SHA-256 digest of data.
func ComputeHash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ConstantTimeEqual compares two byte slices without leaking timing
// information about where they first differ.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// VerifyCertWithCA checks that leaf is currently valid and was signed by ca.
// It performs a single-level chain check: no intermediate path building.
func VerifyCertWithCA(ca *entity.CAMaterial, leaf *x509.Certificate) error {
	now := time.Now()
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		return fmt.Errorf("%w: certificate not valid at %s", domain.ErrInvalidCertificate, now.UTC().Format(time.RFC3339))
	}
	if err := leaf.CheckSignatureFrom(ca.Certificate); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidCertificate, err)
	}
	return nil
}

// VerifySignatureWithCert verifies signature over digest using the leaf
// certificate's public key. digest is fed as the signed message itself (the
// verifier hashes it again internally), matching the ZATCA convention this
// gateway preserves rather than "fixes" (see DESIGN.md Open Question i).
func VerifySignatureWithCert(digest, signature []byte, leaf *x509.Certificate) error {
	pub, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: certificate public key is not ECDSA", domain.ErrInvalidCertificate)
	}
	h := sha256.Sum256(digest)
	if !ecdsa.VerifyASN1(pub, h[:], signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// SignDigest signs digest (re-hashed with SHA-256) with the CA's private
// key, producing an ASN.1 DER ECDSA signature.
func SignDigest(ca *entity.CAMaterial, digest []byte) ([]byte, error) {
	h := sha256.Sum256(digest)
	sig, err := ecdsa.SignASN1(rand.Reader, ca.PrivateKey, h[:])
	if err != nil {
		return nil, fmt.Errorf("gcrypto: sign digest: %w", err)
	}
	return sig, nil
}

// ParseCSR parses a DER-encoded PKCS#10 certificate request and verifies its
// self-signature.
func ParseCSR(der []byte) (*x509.CertificateRequest, error) {
	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCSR, err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%w: self-signature check failed: %v", domain.ErrInvalidCSR, err)
	}
	return csr, nil
}

// CSRCompanyID extracts the company identifier a CSR claims, carried in the
// subject's SerialNumber attribute per SPEC_FULL.md §4.4.
func CSRCompanyID(csr *x509.CertificateRequest) (string, error) {
	if csr.Subject.SerialNumber == "" {
		return "", fmt.Errorf("%w: csr subject has no serialNumber", domain.ErrInvalidCSR)
	}
	return csr.Subject.SerialNumber, nil
}

// IssueCertificate issues a leaf certificate for csr, signed by ca, valid
// from now for 356 days (the source's own validity window, preserved as-is
// rather than rounded to a full year).
func IssueCertificate(ca *entity.CAMaterial, csr *x509.CertificateRequest) ([]byte, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("gcrypto: generate serial: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               csr.Subject,
		Issuer:                ca.Certificate.Subject,
		NotBefore:             now,
		NotAfter:              now.Add(356 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.Certificate, csr.PublicKey, ca.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("gcrypto: issue certificate: %w", err)
	}
	return der, nil
}

// GenerateCAMaterial creates a fresh, self-signed CA keypair. Used by the
// test suite and by local development bootstrapping; production deployments
// load SEC_PRIVATE_KEY/SEC_CERTIFICATE from configuration instead.
func GenerateCAMaterial(subjectCN string) (*entity.CAMaterial, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("gcrypto: generate ca key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("gcrypto: generate ca serial: %w", err)
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: subjectCN},
		NotBefore:             now,
		NotAfter:              now.Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("gcrypto: self-sign ca: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("gcrypto: parse self-signed ca: %w", err)
	}
	return &entity.CAMaterial{PrivateKey: key, Certificate: cert}, nil
}
