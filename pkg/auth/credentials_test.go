package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestManagerStoreAndRetrieve(t *testing.T) {
	manager, mockStore := NewMockManager()

	name, err := manager.Store(&Credential{Token: "pk_12345_ABCDEFGH", TeamID: "900"})
	require.NoError(t, err)
	assert.Equal(t, "mock", name)
	assert.Equal(t, 1, mockStore.Count())

	cred, err := manager.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, cred.Profile)
	assert.Equal(t, "pk_12345_ABCDEFGH", cred.Token)
	assert.Equal(t, "900", cred.TeamID)
	assert.False(t, cred.LastModified.IsZero())

	assert.Equal(t, "pk_12345_ABCDEFGH", manager.Token(DefaultProfile))
	assert.Equal(t, "", manager.Token("other"))

	location, ok := manager.Locate("")
	assert.True(t, ok)
	assert.Equal(t, "mock", location)

	require.NoError(t, manager.Delete(""))
	_, err = manager.Retrieve(DefaultProfile)
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, manager.Delete(""), ErrCredentialsNotFound)
}

func TestManagerRequiresToken(t *testing.T) {
	manager, _ := NewMockManager()
	_, err := manager.Store(&Credential{Profile: "work"})
	assert.Error(t, err)
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("locked")
	fallback := NewMockStore()

	manager := NewManagerWithStores(broken, fallback)
	_, err := manager.Store(&Credential{Profile: "work", Token: "pk_work"})
	require.NoError(t, err)

	assert.Equal(t, 0, broken.Count())
	assert.Equal(t, 1, fallback.Count())
	assert.Equal(t, "pk_work", manager.Token("work"))
}

func TestManagerListKeepsNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()
	require.NoError(t, older.Store(&Credential{Profile: "default", Token: "old", LastModified: time.Unix(100, 0)}))
	require.NoError(t, newer.Store(&Credential{Profile: "default", Token: "new", LastModified: time.Unix(200, 0)}))
	require.NoError(t, newer.Store(&Credential{Profile: "b-side", Token: "b", LastModified: time.Unix(50, 0)}))

	creds, err := NewManagerWithStores(older, newer).List()
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "b-side", creds[0].Profile)
	assert.Equal(t, "new", creds[1].Token)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	require.NoError(t, store.Store(&Credential{Profile: "default", Token: "pk_secret_token_value"}))
	require.NoError(t, store.Store(&Credential{Profile: "work", Token: "pk_work_token_value"}))

	cred, err := store.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "pk_secret_token_value", cred.Token)

	// File must not contain plaintext tokens
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(content, []byte("pk_secret_token_value")))
	assert.False(t, bytes.Contains(content, []byte("pk_work_token_value")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	creds, err := store.List()
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "default", creds[0].Profile)

	require.NoError(t, store.Delete("default"))
	assert.False(t, store.Exists("default"))
	require.NoError(t, store.Delete("work"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file is removed with the last credential")
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Profile: "default", Token: "pk_token"}))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("default")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Profile: "default", Token: "pk_token"}))

	passphrase, err := os.ReadFile(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.NotEmpty(t, passphrase)

	// A second store picks up the same passphrase
	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	cred, err := reopened.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "pk_token", cred.Token)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(TokenEnv, "")
	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.False(t, store.Exists(DefaultProfile))

	t.Setenv(TokenEnv, "pk_env")
	t.Setenv(TeamIDEnv, "42")
	cred, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, cred.Profile)
	assert.Equal(t, "pk_env", cred.Token)
	assert.Equal(t, "42", cred.TeamID)

	assert.ErrorIs(t, store.Store(&Credential{}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete(DefaultProfile), ErrStoreUnavailable)
}

func TestManagerPrefersStoredOverEnvironment(t *testing.T) {
	t.Setenv(PassphraseEnv, "pass")
	t.Setenv(TokenEnv, "pk_env")

	manager, err := NewManagerAt(t.TempDir(), false)
	require.NoError(t, err)

	// Only the environment knows a token so far
	assert.Equal(t, "pk_env", manager.Token(""))

	name, err := manager.Store(&Credential{Token: "pk_stored"})
	require.NoError(t, err)
	assert.Equal(t, "encrypted file", name)
	assert.Equal(t, "pk_stored", manager.Token(""))

	creds, err := manager.List()
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "pk_stored", creds[0].Token)

	// Logging out falls back to the environment again
	require.NoError(t, manager.Delete(""))
	assert.Equal(t, "pk_env", manager.Token(""))
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credential{Profile: "default", Token: "pk_ring"}))
	require.NoError(t, store.Store(&Credential{Profile: "work", Token: "pk_work"}))
	assert.True(t, store.Exists("work"))

	creds, err := store.List()
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "pk_ring", creds[0].Token)

	require.NoError(t, store.Delete("work"))
	assert.ErrorIs(t, store.Delete("work"), ErrCredentialsNotFound)

	creds, err = store.List()
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "********", MaskToken("short"))
	assert.Equal(t, "pk_1...WXYZ", MaskToken("pk_1234567890WXYZ"))

	cred := &Credential{Profile: "default", Token: "pk_1234567890WXYZ"}
	masked := Sanitize(cred)
	assert.Equal(t, "pk_1...WXYZ", masked.Token)
	assert.Equal(t, "pk_1234567890WXYZ", cred.Token, "input is untouched")
	assert.Nil(t, Sanitize(nil))
}
