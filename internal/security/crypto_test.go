package security_test

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/repository/memory"
	"github.com/Rrens/event-assistant/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEncryptor(t *testing.T) *security.Encryptor {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	enc, err := security.NewEncryptor(key)
	require.NoError(t, err)
	return enc
}

func TestEncryptor_EncryptDecrypt(t *testing.T) {
	enc := testEncryptor(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"short", "hello"},
		{"special", "special chars: !@#$%^&*()_+-=[]{}|;':\",./<>?"},
		{"unicode", "unicode: 日本語 中文 🎉"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.EncryptString(tt.plaintext)
			require.NoError(t, err)

			decrypted, err := enc.DecryptString(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestEncryptor_KeyLengths(t *testing.T) {
	for _, n := range []int{0, 15, 17, 31, 33} {
		_, err := security.NewEncryptor(make([]byte, n))
		assert.Error(t, err, "key length %d", n)
	}
	for _, n := range []int{16, 24, 32} {
		_, err := security.NewEncryptor(make([]byte, n))
		assert.NoError(t, err, "key length %d", n)
	}
}

func TestNewEncryptorFromSecret(t *testing.T) {
	key, err := security.GenerateKey()
	require.NoError(t, err)

	fromKey, err := security.NewEncryptorFromSecret(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	direct, err := security.NewEncryptor(key)
	require.NoError(t, err)

	sealed, err := fromKey.EncryptString("hello")
	require.NoError(t, err)
	opened, err := direct.DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hello", opened)

	_, err = security.NewEncryptorFromSecret("not base64 passphrase")
	assert.NoError(t, err)
}

func TestEncryptor_DifferentCiphertexts(t *testing.T) {
	enc := testEncryptor(t)

	c1, err := enc.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	c2, err := enc.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}

func TestEncryptedHistoryStore(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewHistoryStore(10)
	store := security.NewEncryptedHistoryStore(inner, testEncryptor(t))

	require.NoError(t, store.Append(ctx, "k", domain.RoleUser, "where is the jazz night?"))
	require.NoError(t, store.Append(ctx, "k", domain.RoleAssistant, "Skopje"))

	raw, err := inner.Get(ctx, "k")
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, domain.RoleUser, raw[0].Role)
	assert.NotContains(t, raw[0].Content, "jazz")

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "where is the jazz night?"},
		{Role: domain.RoleAssistant, Content: "Skopje"},
	}, got)

	require.NoError(t, store.Set(ctx, "k", []domain.ChatMessage{{Role: domain.RoleSystem, Content: "reset"}}))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []domain.ChatMessage{{Role: domain.RoleSystem, Content: "reset"}}, got)
}

func TestEncryptedHistoryStore_AppendMany(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewHistoryStore(10)
	store := security.NewEncryptedHistoryStore(inner, testEncryptor(t))

	turn := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "any jazz tonight?"},
		{Role: domain.RoleAssistant, Content: "Jazz Night at 9pm."},
	}
	require.NoError(t, store.AppendMany(ctx, "k", turn))

	raw, err := inner.Get(ctx, "k")
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, domain.RoleAssistant, raw[1].Role)
	assert.NotContains(t, raw[1].Content, "Jazz")

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, turn, got)
}
