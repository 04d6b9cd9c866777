// Package keyring provides secure credential storage for server profiles.
// It uses the system keyring when available, falling back to an
// encrypted local file when not.
package keyring

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"vpndial/common"
)

// serviceName is the identifier used in the system keyring.
const serviceName = "vpndial"

// ErrNotFound is returned when no secret is stored for a profile.
var ErrNotFound = common.ErrCredentialsNotFound

// Storage backend state. The system keyring is probed once, on first
// use; when it is unavailable the encrypted local vault takes over.
var (
	initOnce        sync.Once
	useLocalStorage bool
	vault           *localVault
)

func initStorage() {
	initOnce.Do(func() {
		// Try system keyring first
		testKey := serviceName + "-test-init"
		err := keyring.Set(serviceName, testKey, "test")
		if err == nil {
			keyring.Delete(serviceName, testKey)
			useLocalStorage = false
			return
		}

		common.LogInfo("Keyring: system keyring unavailable, using encrypted local store: %v", err)
		useLocalStorage = true
		vault = openDefaultVault()
	})
}

// keyFor maps a profile ID to its keyring entry name.
func keyFor(profileID int64) string {
	return "profile-" + strconv.FormatInt(profileID, 10)
}

// Store saves a secret for a server profile.
func Store(profileID int64, secret string) error {
	if profileID == 0 {
		return errors.New("profile ID cannot be zero")
	}
	if secret == "" {
		return errors.New("secret cannot be empty")
	}
	initStorage()

	if useLocalStorage {
		return vault.set(keyFor(profileID), secret)
	}

	if err := keyring.Set(serviceName, keyFor(profileID), secret); err != nil {
		// Fallback to the local vault
		common.LogWarn("Keyring: system keyring write failed, falling back: %v", err)
		useLocalStorage = true
		if vault == nil {
			vault = openDefaultVault()
		}
		return vault.set(keyFor(profileID), secret)
	}
	return nil
}

// Get retrieves the secret for a server profile.
func Get(profileID int64) (string, error) {
	if profileID == 0 {
		return "", errors.New("profile ID cannot be zero")
	}
	initStorage()

	if useLocalStorage {
		return vault.get(keyFor(profileID))
	}

	secret, err := keyring.Get(serviceName, keyFor(profileID))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", common.WrapError(err, "keyring read failed")
	}
	return secret, nil
}

// Delete removes the secret for a server profile. Deleting a secret
// that was never stored is a no-op.
func Delete(profileID int64) error {
	if profileID == 0 {
		return errors.New("profile ID cannot be zero")
	}
	initStorage()

	if useLocalStorage {
		return vault.delete(keyFor(profileID))
	}

	if err := keyring.Delete(serviceName, keyFor(profileID)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return common.WrapError(err, "keyring delete failed")
	}
	return nil
}

// Exists reports whether a secret is stored for a server profile.
func Exists(profileID int64) bool {
	_, err := Get(profileID)
	return err == nil
}

// localVault is the encrypted fallback store: a JSON map sealed with
// XChaCha20-Poly1305 under a key derived from machine identity, then
// base64-encoded on disk. It protects the credentials file against
// casual reading, not against an attacker with the same local access.
type localVault struct {
	mu      sync.Mutex
	path    string
	aead    cipher.AEAD
	entries map[string]string
}

// openDefaultVault opens the per-user vault file. Errors degrade to an
// in-memory vault so credential operations keep working for the
// current process.
func openDefaultVault() *localVault {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		common.LogError("Keyring: cannot resolve home directory: %v", err)
		homeDir = "."
	}
	configDir := filepath.Join(homeDir, ".config", common.ConfigDirName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		common.LogError("Keyring: cannot create config directory: %v", err)
	}

	v, err := openVault(filepath.Join(configDir, common.CredentialsFileName), machineSecret())
	if err != nil {
		common.LogError("Keyring: cannot open local vault: %v", err)
		return &localVault{entries: make(map[string]string)}
	}
	return v
}

// openVault opens (or prepares) a vault at path, sealed under a key
// derived from secret.
func openVault(path string, secret []byte) (*localVault, error) {
	key, err := scrypt.Key(secret, []byte(serviceName), 1<<15, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, common.WrapError(err, "key derivation failed")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, common.WrapError(err, "cipher init failed")
	}

	v := &localVault{
		path:    path,
		aead:    aead,
		entries: make(map[string]string),
	}
	v.load()
	return v, nil
}

// machineSecret builds the key material the vault key is derived from.
// It ties the vault to this machine and user rather than a password.
func machineSecret() []byte {
	hostname, _ := os.Hostname()
	machineID := "default-machine-id"
	if data, err := os.ReadFile("/etc/machine-id"); err == nil {
		machineID = strings.TrimSpace(string(data))
	}
	return []byte(fmt.Sprintf("%s-%s-%s-%d", serviceName, hostname, machineID, os.Getuid()))
}

// load reads and decrypts the vault file. A missing file means an
// empty vault; an undecryptable file is treated the same, since the
// secrets are unrecoverable anyway.
func (v *localVault) load() {
	data, err := os.ReadFile(v.path)
	if err != nil {
		return
	}

	plain, err := v.decrypt(data)
	if err != nil {
		common.LogWarn("Keyring: local vault unreadable, starting empty: %v", err)
		return
	}
	if err := json.Unmarshal(plain, &v.entries); err != nil {
		common.LogWarn("Keyring: local vault corrupt, starting empty: %v", err)
		v.entries = make(map[string]string)
	}
}

// save encrypts and writes the vault. Called with v.mu held.
func (v *localVault) save() error {
	if v.path == "" {
		return nil
	}

	plain, err := json.Marshal(v.entries)
	if err != nil {
		return err
	}
	sealed, err := v.encrypt(plain)
	if err != nil {
		return err
	}
	return os.WriteFile(v.path, sealed, 0600)
}

func (v *localVault) set(key, secret string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[key] = secret
	return v.save()
}

func (v *localVault) get(key string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	secret, ok := v.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

func (v *localVault) delete(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.entries, key)
	return v.save()
}

func (v *localVault) encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	sealed := v.aead.Seal(nonce, nonce, plaintext, nil)
	return []byte(base64.StdEncoding.EncodeToString(sealed)), nil
}

func (v *localVault) decrypt(data []byte) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, err
	}
	if len(sealed) < v.aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:v.aead.NonceSize()], sealed[v.aead.NonceSize():]
	return v.aead.Open(nil, nonce, ciphertext, nil)
}
