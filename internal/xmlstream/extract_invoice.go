package xmlstream

import "bytes"

const qrReferenceID = "QR"

// ExtractInvoiceSubset produces the canonical-invoice-subset input: the
// document with every UBLExtensions and Signature subtree removed, and every
// AdditionalDocumentReference whose direct <ID> text (trimmed) equals "QR"
// removed. All other content, including whitespace-only text, is preserved
// in document order and byte-exact.
func ExtractInvoiceSubset(src []byte) ([]byte, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	skipDepth := 0 // >0 while inside a UBLExtensions or Signature subtree being dropped

	for i := 0; i < len(toks); i++ {
		t := toks[i]

		if skipDepth > 0 {
			switch t.kind {
			case kStart:
				skipDepth++
			case kEnd:
				skipDepth--
			}
			continue
		}

		if t.kind == kStart && isSkippable(t.local) {
			skipDepth = 1
			continue
		}
		if t.kind == kEmpty && isSkippable(t.local) {
			continue // self-closing UBLExtensions/Signature: nothing to emit
		}

		if t.local == "AdditionalDocumentReference" && (t.kind == kStart || t.kind == kEmpty) {
			consumed, keep, buf := bufferAdditionalDocumentReference(toks, i)
			if keep {
				out.Write(buf)
			}
			i += consumed - 1
			continue
		}

		out.Write(t.raw)
	}

	return out.Bytes(), nil
}

func isSkippable(local string) bool {
	return local == "UBLExtensions" || local == "Signature"
}

// bufferAdditionalDocumentReference scans the AdditionalDocumentReference
// subtree starting at toks[start], returning how many tokens it spans,
// whether it should be kept (i.e. it is not the QR reference), and its
// exact source bytes.
func bufferAdditionalDocumentReference(toks []token, start int) (consumed int, keep bool, buf []byte) {
	var b bytes.Buffer
	first := toks[start]
	b.Write(first.raw)

	if first.kind == kEmpty {
		return 1, true, b.Bytes()
	}

	depth := 1
	sawQR := false
	inDirectID := false
	var idText bytes.Buffer

	i := start + 1
	for ; i < len(toks); i++ {
		t := toks[i]
		b.Write(t.raw)

		switch t.kind {
		case kStart:
			depth++
			if depth == 2 && t.local == "ID" {
				inDirectID = true
				idText.Reset()
			}
		case kEmpty:
			// self-closing direct child cannot carry text; nothing to record
		case kEnd:
			if depth == 2 && t.local == "ID" && inDirectID {
				inDirectID = false
				if bytes.Equal(bytes.TrimSpace(idText.Bytes()), []byte(qrReferenceID)) {
					sawQR = true
				}
			}
			depth--
			if depth == 0 {
				i++
				goto done
			}
		case kOther:
			if inDirectID && depth == 2 {
				idText.Write(t.raw)
			}
		}
	}
done:
	return i - start, !sawQR, b.Bytes()
}
