package canon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zatca-gateway/internal/canon"
)

const fragment = `<SignedInfo xmlns="ds"><Reference URI=""><DigestValue>abc</DigestValue></Reference></SignedInfo>`

func TestC14N11_Idempotent(t *testing.T) {
	c := canon.C14N11{}

	out1, err := c.Canonicalize([]byte(fragment))
	require.NoError(t, err)

	out2, err := c.Canonicalize(out1)
	require.NoError(t, err)

	assert.Equal(t, string(out1), string(out2), "canonicalizing an already-canonical fragment must be a no-op")
}

func TestC14N11_AttributeOrderIsNormalized(t *testing.T) {
	c := canon.C14N11{}

	a := `<e xmlns="ns" b="2" a="1"></e>`
	b := `<e xmlns="ns" a="1" b="2"></e>`

	outA, err := c.Canonicalize([]byte(a))
	require.NoError(t, err)
	outB, err := c.Canonicalize([]byte(b))
	require.NoError(t, err)

	assert.Equal(t, string(outA), string(outB), "attribute declaration order must not affect the canonical form")
}

func TestC14N11_MalformedFragment(t *testing.T) {
	c := canon.C14N11{}
	_, err := c.Canonicalize([]byte("<open><unclosed></open>"))
	assert.Error(t, err)
}

func TestExclusive_Canonicalize(t *testing.T) {
	e := canon.NewExclusive()
	out, err := e.Canonicalize([]byte(fragment))
	require.NoError(t, err)
	assert.Contains(t, string(out), "DigestValue")
}

func TestExclusive_EmptyFragment(t *testing.T) {
	e := canon.NewExclusive()
	_, err := e.Canonicalize([]byte(""))
	assert.Error(t, err)
}
