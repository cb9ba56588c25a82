package artifact

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"sort"

	"github.com/joho/godotenv"
)

// Keys of generated secrets in the credentials file.
const (
	KeyEditorPassword    = "EDITOR_PASSWORD"
	KeyBasicAuthPassword = "BASIC_AUTH_PASSWORD"
	KeyDatabasePassword  = "POSTGRES_PASSWORD"
)

// DefaultCredentialKeys are generated on the first run.
var DefaultCredentialKeys = []string{KeyEditorPassword, KeyBasicAuthPassword, KeyDatabasePassword}

const passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// PasswordLength is the length of generated passwords.
const PasswordLength = 24

// Credentials maps credential keys to secrets.
type Credentials map[string]string

// Keys returns the credential names in stable order.
func (c Credentials) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GeneratePassword returns a random password without look-alike characters.
func GeneratePassword(n int) (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// LoadCredentials reads the credentials file; a missing file yields an empty set.
func LoadCredentials(path string) (Credentials, error) {
	m, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials %s: %w", path, err)
	}
	return Credentials(m), nil
}

/**
 * Load credentials, generating any missing key once
 * @param {string} path - Credentials file (dotenv format, mode 0600)
 * @param {[]string} keys - Required keys
 * @returns {Credentials} Existing values plus generated ones
 * @returns {bool} True when something was generated and the file rewritten
 * @returns {error} Read, generate or write error
 * @description
 * - Existing values are never regenerated, so passwords already handed to
 *   services stay valid across runs
 */
func EnsureCredentials(path string, keys []string) (Credentials, bool, error) {
	creds, err := LoadCredentials(path)
	if err != nil {
		return nil, false, err
	}

	generated := false
	for _, k := range keys {
		if creds[k] != "" {
			continue
		}
		pw, err := GeneratePassword(PasswordLength)
		if err != nil {
			return nil, false, fmt.Errorf("generate %s: %w", k, err)
		}
		creds[k] = pw
		generated = true
	}
	if !generated {
		return creds, false, nil
	}

	content, err := godotenv.Marshal(creds)
	if err != nil {
		return nil, false, err
	}
	if _, err := Place(path, []byte(content+"\n"), 0600); err != nil {
		return nil, false, err
	}
	return creds, true, nil
}
