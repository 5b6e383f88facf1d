package clearance

import (
	"crypto/x509"
	"fmt"

	"github.com/jhoicas/zatca-gateway/internal/domain"
)

// parseCertificate parses a DER-encoded X.509 leaf certificate. ZATCA
// embeds the raw DER bytes (base64-wrapped) rather than a PEM block.
func parseCertificate(der []byte) (*x509.Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCertificate, err)
	}
	return cert, nil
}
