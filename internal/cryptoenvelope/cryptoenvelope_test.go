package cryptoenvelope

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	env := New("process-secret")

	payload := []byte(`{"streaming_providers":[{"service":"realdebrid","token":"abc"}]}`)

	encoded, err := env.Encrypt(payload)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := env.Decrypt(encoded)
	require.NoError(t, err)
	require.Equal(t, payload, decoded)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	env := New("process-secret")

	_, err := env.Decrypt("not-valid-base64!!!")
	require.Error(t, err)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	encoded, err := New("secret-a").Encrypt([]byte(`{"a":1}`))
	require.NoError(t, err)

	_, err = New("secret-b").Decrypt(encoded)
	require.Error(t, err)
}

func TestFingerprintIsStableAndSensitiveToInputs(t *testing.T) {
	a := Fingerprint("1.2.3.4", "secret", "abcd", "1", "2")
	b := Fingerprint("1.2.3.4", "secret", "abcd", "1", "2")
	c := Fingerprint("1.2.3.4", "secret", "abcd", "1", "3")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 16)
}
