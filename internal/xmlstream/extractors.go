package xmlstream

import (
	"bytes"
	"fmt"
)

// ExtractSignatureAndCertificate returns the text of the first
// SignatureValue element and the first X509Certificate element found in src.
func ExtractSignatureAndCertificate(src []byte) (signatureB64, certificateB64 string, err error) {
	toks, err := tokenize(src)
	if err != nil {
		return "", "", err
	}
	sig, sigOK := firstElementText(toks, "SignatureValue")
	cert, certOK := firstElementText(toks, "X509Certificate")
	if !sigOK {
		return "", "", fmt.Errorf("xmlstream: no SignatureValue element found")
	}
	if !certOK {
		return "", "", fmt.Errorf("xmlstream: no X509Certificate element found")
	}
	return sig, cert, nil
}

// ExtractCompanyID returns the text of the first CompanyID element whose
// parent is a PartyTaxScheme lying anywhere inside AccountingCustomerParty
// (in UBL, AccountingCustomerParty/Party/PartyTaxScheme/CompanyID).
func ExtractCompanyID(src []byte) (string, error) {
	toks, err := tokenize(src)
	if err != nil {
		return "", err
	}

	var ancestors []string
	for i := 0; i < len(toks); i++ {
		t := toks[i]

		if t.kind == kEnd {
			if len(ancestors) > 0 {
				ancestors = ancestors[:len(ancestors)-1]
			}
			continue
		}

		if t.local == "CompanyID" && (t.kind == kStart || t.kind == kEmpty) &&
			hasSuffix(ancestors, "PartyTaxScheme") && hasAncestor(ancestors, "AccountingCustomerParty") {
			if t.kind == kEmpty {
				return "", nil
			}
			text, ok := readElementText(toks, i)
			if ok {
				return text, nil
			}
		}

		if t.kind == kStart {
			ancestors = append(ancestors, t.local)
		}
	}
	return "", fmt.Errorf("xmlstream: no AccountingCustomerParty/PartyTaxScheme/CompanyID found")
}

// hasSuffix reports whether ancestors ends exactly with the given path.
func hasSuffix(ancestors []string, path ...string) bool {
	if len(ancestors) < len(path) {
		return false
	}
	base := ancestors[len(ancestors)-len(path):]
	for i := range path {
		if base[i] != path[i] {
			return false
		}
	}
	return true
}

// hasAncestor reports whether name appears anywhere in ancestors.
func hasAncestor(ancestors []string, name string) bool {
	for _, a := range ancestors {
		if a == name {
			return true
		}
	}
	return false
}

// ExtractPIH returns the base64 text inside the EmbeddedDocumentBinaryObject
// of the AdditionalDocumentReference whose direct <ID> is "PIH".
func ExtractPIH(src []byte) (string, error) {
	toks, err := tokenize(src)
	if err != nil {
		return "", err
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.local != "AdditionalDocumentReference" || (t.kind != kStart && t.kind != kEmpty) {
			continue
		}
		consumed, id, body := scanAdrByID(toks, i)
		if id == "PIH" {
			value, ok := firstElementText(body, "EmbeddedDocumentBinaryObject")
			if !ok {
				return "", fmt.Errorf("xmlstream: PIH reference missing EmbeddedDocumentBinaryObject")
			}
			return value, nil
		}
		i += consumed - 1
	}
	return "", fmt.Errorf("xmlstream: no PIH AdditionalDocumentReference found")
}

// scanAdrByID returns the number of tokens the ADR subtree spans, its direct
// <ID> text, and the token slice of its body (for re-scanning by callers).
func scanAdrByID(toks []token, start int) (consumed int, id string, body []token) {
	if toks[start].kind == kEmpty {
		return 1, "", nil
	}
	depth := 1
	i := start + 1
	idStart := -1
	for ; i < len(toks); i++ {
		t := toks[i]
		switch t.kind {
		case kStart:
			depth++
			if depth == 2 && t.local == "ID" {
				idStart = i
			}
		case kEnd:
			if depth == 2 && t.local == "ID" && idStart >= 0 {
				text, _ := readElementText(toks, idStart)
				id = bytesTrim(text)
				idStart = -1
			}
			depth--
			if depth == 0 {
				i++
				goto done
			}
		}
	}
done:
	return i - start, id, toks[start:i]
}

func bytesTrim(s string) string {
	return string(bytes.TrimSpace([]byte(s)))
}

// firstElementText scans toks for the first start element with the given
// local name and returns its inner text.
func firstElementText(toks []token, localName string) (string, bool) {
	for i, t := range toks {
		if t.local == localName && t.kind == kStart {
			return readElementText(toks, i)
		}
		if t.local == localName && t.kind == kEmpty {
			return "", true
		}
	}
	return "", false
}

// readElementText assumes toks[start] is a kStart token and returns the
// concatenated raw text of every token up to its matching end element.
func readElementText(toks []token, start int) (string, bool) {
	depth := 1
	var b bytes.Buffer
	for i := start + 1; i < len(toks); i++ {
		switch toks[i].kind {
		case kStart:
			depth++
		case kEnd:
			depth--
			if depth == 0 {
				return b.String(), true
			}
		case kOther:
			if depth == 1 {
				b.Write(toks[i].raw)
			}
		}
	}
	return "", false
}
