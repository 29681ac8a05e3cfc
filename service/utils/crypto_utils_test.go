package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESRoundTrip(t *testing.T) {
	cu := NewCryptoUtils("test-key")

	cipher, err := cu.AESEncrypt("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", cipher)

	plain, err := cu.AESDecrypt(cipher)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-password", plain)
}

func TestAESEncryptIsRandomized(t *testing.T) {
	cu := NewCryptoUtils("test-key")
	c1, err := cu.AESEncrypt("same")
	require.NoError(t, err)
	c2, err := cu.AESEncrypt("same")
	require.NoError(t, err)
	// 随机IV保证同一明文两次加密产生不同密文
	assert.NotEqual(t, c1, c2)
}

func TestAESDecryptRejectsGarbage(t *testing.T) {
	cu := NewCryptoUtils("test-key")

	_, err := cu.AESDecrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = cu.AESDecrypt("c2hvcnQ=")
	assert.Error(t, err)
}

func TestDifferentKeysDoNotInterop(t *testing.T) {
	a := NewCryptoUtils("key-a")
	b := NewCryptoUtils("key-b")

	cipher, err := a.AESEncrypt("payload")
	require.NoError(t, err)

	plain, err := b.AESDecrypt(cipher)
	require.NoError(t, err)
	assert.NotEqual(t, "payload", plain)
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[]", VectorLiteral(nil))
	assert.Equal(t, "[1,-0.5,2.25]", VectorLiteral([]float32{1, -0.5, 2.25}))
}
