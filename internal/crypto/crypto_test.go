package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T, passphrase string) (*Cipher, string) {
	t.Helper()
	salt, err := NewSalt()
	require.NoError(t, err)
	c, err := DeriveCipher(passphrase, salt)
	require.NoError(t, err)
	return c, salt
}

func TestEncryptDecrypt(t *testing.T) {
	c, _ := newTestCipher(t, "correct horse")

	encrypted, err := c.Encrypt("s3cret")
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "s3cret")

	decrypted, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", decrypted)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	c, _ := newTestCipher(t, "correct horse")

	a, err := c.Encrypt("same")
	require.NoError(t, err)
	b, err := c.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDeriveIsDeterministicPerSalt(t *testing.T) {
	c1, salt := newTestCipher(t, "correct horse")
	c2, err := DeriveCipher("correct horse", salt)
	require.NoError(t, err)

	encrypted, err := c1.Encrypt("payload")
	require.NoError(t, err)
	decrypted, err := c2.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "payload", decrypted)
}

func TestWrongPassphraseFails(t *testing.T) {
	c, salt := newTestCipher(t, "correct horse")
	wrong, err := DeriveCipher("battery staple", salt)
	require.NoError(t, err)

	encrypted, err := c.Encrypt("payload")
	require.NoError(t, err)
	_, err = wrong.Decrypt(encrypted)
	assert.Error(t, err)

	check, err := c.KeyCheck()
	require.NoError(t, err)
	assert.True(t, c.VerifyKeyCheck(check))
	assert.False(t, wrong.VerifyKeyCheck(check))
}

func TestDeriveCipherValidation(t *testing.T) {
	_, err := DeriveCipher("", "00ff")
	assert.Error(t, err)

	_, err = DeriveCipher("pass", "not-hex")
	assert.Error(t, err)

	_, err = DeriveCipher("pass", "")
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c, _ := newTestCipher(t, "correct horse")

	_, err := c.Decrypt("zz")
	assert.Error(t, err)

	_, err = c.Decrypt("00")
	assert.Error(t, err)
}
