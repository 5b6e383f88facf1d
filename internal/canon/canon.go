// Package canon wraps W3C canonicalization primitives behind one interface
// so the clearance pipeline can be pointed at either the C14N11 backend this
// profile requires or an Exclusive C14N backend for interop testing,
// without touching call sites.
package canon

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/ucarion/c14n"
)

// Canonicalizer produces the canonical serialization of a well-formed XML
// fragment (no XML declaration, no leading/trailing junk).
type Canonicalizer interface {
	Canonicalize(fragment []byte) ([]byte, error)
}

// C14N11 is the default backend: W3C Canonical XML 1.1, no comments, no
// inclusive namespace prefixes. It is grounded on the ucarion/c14n library,
// which canonicalizes directly off an encoding/xml decoder the same way
// this pipeline's own transformer does.
type C14N11 struct{}

func (C14N11) Canonicalize(fragment []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(fragment))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("canon: c14n11: %w", err)
	}
	return out, nil
}

// Exclusive wraps goxmldsig's Exclusive C14N canonicalizer. It is not wired
// into the default clearance pipeline; it exists so operators validating
// interop against XML-DSig verifiers that expect Exclusive C14N (rather
// than C14N 1.1) can swap backends without a second implementation of the
// call sites.
type Exclusive struct {
	inner dsig.Canonicalizer
}

// NewExclusive builds an Exclusive-C14N backend with no inclusive prefix
// list, matching how goxmldsig-based signers in this ecosystem typically
// configure it for a single, self-contained signature block.
func NewExclusive() Exclusive {
	return Exclusive{inner: dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")}
}

func (e Exclusive) Canonicalize(fragment []byte) ([]byte, error) {
	doc := etree.NewDocument()
	// the fragment is parsed as a standalone document; its root element is
	// what gets canonicalized.
	if err := doc.ReadFromBytes(fragment); err != nil {
		return nil, fmt.Errorf("canon: exclusive: malformed xml: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("canon: exclusive: empty document")
	}
	out, err := e.inner.Canonicalize(doc.Root())
	if err != nil {
		return nil, fmt.Errorf("canon: exclusive: %w", err)
	}
	return out, nil
}
