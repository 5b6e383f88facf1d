// Package xmlstream implements the byte-exact, single-pass XML projections
// the clearance pipeline depends on: extracting the signable invoice subset,
// extracting SignedProperties/SignedInfo, and rewriting SigningTime,
// SignedInfo digests, and SignatureValue in place.
//
// Every state machine in this package matches elements by local name only
// (never by qualified name), since a taxpayer's chosen namespace prefixes
// must not affect the signed payload.
package xmlstream

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// kind classifies one decoded token for the state machines in this package.
type kind int

const (
	kStart kind = iota
	kEmpty
	kEnd
	kOther
)

// token is one raw, unmodified slice of the source document paired with its
// decoded classification. raw always reproduces the exact input bytes for
// this token, which is what gives the transformer byte-exact passthrough.
type token struct {
	kind  kind
	local string
	raw   []byte
	attr  []xml.Attr
}

// tokenize decodes src into a flat list of tokens, reclassifying
// self-closing start elements as kEmpty and dropping the decoder's
// synthesized matching end-element for them. Processing instructions,
// including the XML declaration, are omitted from the result.
func tokenize(src []byte) ([]token, error) {
	dec := xml.NewDecoder(bytes.NewReader(src))
	dec.Strict = true

	var out []token
	pendingEmpty := 0
	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmlstream: malformed xml at offset %d: %w", start, err)
		}
		end := dec.InputOffset()
		raw := src[start:end]

		switch t := tok.(type) {
		case xml.ProcInst:
			continue // drop declaration and other processing instructions
		case xml.StartElement:
			self := bytes.HasSuffix(bytes.TrimRight(raw, " \t\r\n"), []byte("/>"))
			if self {
				out = append(out, token{kind: kEmpty, local: t.Name.Local, raw: raw, attr: t.Attr})
				pendingEmpty++
				continue
			}
			out = append(out, token{kind: kStart, local: t.Name.Local, raw: raw, attr: t.Attr})
		case xml.EndElement:
			if pendingEmpty > 0 {
				// this is the decoder's synthesized end element matching the
				// self-closing start token immediately above; it carries no
				// bytes of its own and must not be re-emitted.
				pendingEmpty--
				continue
			}
			out = append(out, token{kind: kEnd, local: t.Name.Local, raw: raw})
		default:
			out = append(out, token{kind: kOther, local: "", raw: raw})
		}
	}
	return out, nil
}

func isWhitespace(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}
