package entity

import (
	"crypto/ecdsa"
	"crypto/x509"
)

// CAMaterial is the gateway's own certificate authority keypair, loaded once
// at startup and shared read-only by every request goroutine.
type CAMaterial struct {
	PrivateKey  *ecdsa.PrivateKey
	Certificate *x509.Certificate
}
