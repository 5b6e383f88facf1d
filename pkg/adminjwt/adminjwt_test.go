package adminjwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zatca-gateway/pkg/adminjwt"
)

const testSecret = "test-operator-secret"

func TestGenerateAndParse_RoundTrip(t *testing.T) {
	tok, err := adminjwt.Generate(testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	assert.NoError(t, adminjwt.Parse(testSecret, tok))
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := adminjwt.Generate(testSecret, time.Hour)
	require.NoError(t, err)

	assert.Error(t, adminjwt.Parse("a-different-secret", tok))
}

func TestParse_ExpiredToken(t *testing.T) {
	tok, err := adminjwt.Generate(testSecret, -time.Minute)
	require.NoError(t, err)

	assert.Error(t, adminjwt.Parse(testSecret, tok))
}

func TestParse_MalformedToken(t *testing.T) {
	assert.Error(t, adminjwt.Parse(testSecret, "not.a.jwt"))
}

func TestGenerate_EmptySecret(t *testing.T) {
	_, err := adminjwt.Generate("", time.Hour)
	assert.Error(t, err)
}
