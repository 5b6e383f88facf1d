package xmlstream

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"
)

// SigningTimeLayout is the ISO-8601 UTC layout ZATCA signatures use.
const SigningTimeLayout = "2006-01-02T15:04:05Z"

// EditSigningTime replaces the inner text of the first SigningTime element
// with now, formatted per SigningTimeLayout.
func EditSigningTime(src []byte, now time.Time) ([]byte, error) {
	return replaceElementText(src, "SigningTime", []byte(now.UTC().Format(SigningTimeLayout)))
}

// EditSignature replaces the inner text of the first SignatureValue element
// with signatureB64.
func EditSignature(src []byte, signatureB64 string) ([]byte, error) {
	return replaceElementText(src, "SignatureValue", []byte(signatureB64))
}

// replaceElementText rewrites the document so that the first element with
// the given local name contains exactly newText as its body, leaving every
// other element, text and comment byte-for-byte unchanged. The XML
// declaration and any other processing instructions are not copied to the
// output.
func replaceElementText(src []byte, localName string, newText []byte) ([]byte, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	found := false
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if found || t.local != localName || (t.kind != kStart && t.kind != kEmpty) {
			out.Write(t.raw)
			continue
		}

		if t.kind == kEmpty {
			trimmed := bytes.TrimRight(t.raw, " \t\r\n")
			open := trimmed[:len(trimmed)-2] // drop trailing "/>"
			out.Write(open)
			out.WriteByte('>')
			out.Write(newText)
			fmt.Fprintf(&out, "</%s>", localName)
			found = true
			continue
		}

		// kStart: copy the start tag, skip everything up to and including
		// the matching end tag's opening, write the replacement text, then
		// let the end tag below fall through to the passthrough branch.
		out.Write(t.raw)
		depth := 1
		j := i + 1
		for ; j < len(toks); j++ {
			switch toks[j].kind {
			case kStart:
				depth++
			case kEnd:
				depth--
				if depth == 0 {
					out.Write(newText)
					out.Write(toks[j].raw)
					found = true
					goto advanced
				}
			}
		}
		return nil, fmt.Errorf("xmlstream: unterminated %s element", localName)
	advanced:
		i = j
	}

	if !found {
		return nil, fmt.Errorf("xmlstream: no %s element found", localName)
	}
	return out.Bytes(), nil
}

const (
	refIDInvoiceSignedData = "invoiceSignedData"
	refTypeSignatureProps  = "http://www.w3.org/2000/09/xmldsig#SignatureProperties"
)

// EditSignedInfo rewrites the DigestValue of the Reference element whose Id
// attribute is "invoiceSignedData" to invoiceDigestB64, and the DigestValue
// of the Reference element whose Type attribute is the XML-DSig
// SignatureProperties URI to signedPropertiesDigestB64. Every other
// Reference, and every other DigestValue, is left untouched.
func EditSignedInfo(src []byte, invoiceDigestB64, signedPropertiesDigestB64 string) ([]byte, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	var active string // "" | refIDInvoiceSignedData | refTypeSignatureProps
	refDepth := 0

	for i := 0; i < len(toks); i++ {
		t := toks[i]

		if t.local == "Reference" && t.kind == kStart {
			refDepth = 1
			active = classifyReference(t.attr)
			out.Write(t.raw)
			continue
		}
		if t.local == "Reference" && t.kind == kEnd {
			refDepth = 0
			active = ""
			out.Write(t.raw)
			continue
		}
		if refDepth > 0 {
			switch t.kind {
			case kStart:
				refDepth++
			case kEnd:
				refDepth--
			}
		}

		if t.local == "DigestValue" && active != "" && t.kind == kStart {
			var want string
			switch active {
			case refIDInvoiceSignedData:
				want = invoiceDigestB64
			case refTypeSignatureProps:
				want = signedPropertiesDigestB64
			}
			out.Write(t.raw)
			j := i + 1
			for ; j < len(toks) && toks[j].local != "DigestValue"; j++ {
			}
			if j == len(toks) {
				return nil, fmt.Errorf("xmlstream: unterminated DigestValue element")
			}
			out.WriteString(want)
			out.Write(toks[j].raw)
			i = j
			continue
		}

		out.Write(t.raw)
	}

	return out.Bytes(), nil
}

func classifyReference(attrs []xml.Attr) string {
	for _, a := range attrs {
		if a.Name.Local == "Id" && a.Value == refIDInvoiceSignedData {
			return refIDInvoiceSignedData
		}
		if a.Name.Local == "Type" && a.Value == refTypeSignatureProps {
			return refTypeSignatureProps
		}
	}
	return ""
}
