package xmlstream

import (
	"bytes"
	"fmt"
)

// ExtractSignedProperties returns the byte-exact subtree of the first
// element whose local name is SignedProperties.
func ExtractSignedProperties(src []byte) ([]byte, error) {
	return extractFirstSubtree(src, "SignedProperties")
}

// ExtractSignedInfo returns the byte-exact subtree of the first element
// whose local name is SignedInfo.
func ExtractSignedInfo(src []byte) ([]byte, error) {
	return extractFirstSubtree(src, "SignedInfo")
}

func extractFirstSubtree(src []byte, localName string) ([]byte, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	for i, t := range toks {
		if t.local != localName {
			continue
		}
		if t.kind == kEmpty {
			return append([]byte(nil), t.raw...), nil
		}
		if t.kind != kStart {
			continue
		}
		var b bytes.Buffer
		b.Write(t.raw)
		depth := 1
		for j := i + 1; j < len(toks); j++ {
			b.Write(toks[j].raw)
			switch toks[j].kind {
			case kStart:
				depth++
			case kEnd:
				depth--
				if depth == 0 {
					return b.Bytes(), nil
				}
			}
		}
		return nil, fmt.Errorf("xmlstream: unterminated %s element", localName)
	}
	return nil, fmt.Errorf("xmlstream: no %s element found", localName)
}
