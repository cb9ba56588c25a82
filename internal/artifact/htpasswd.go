package artifact

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

/**
 * Render a basic-auth file with one bcrypt entry
 * @param {[]byte} existing - Current file content, may be nil
 * @param {string} user - Login name
 * @param {string} password - Clear text password
 * @returns {[]byte} File content
 * @returns {error} Hashing error
 * @description
 * - Keeps the existing line when its hash still matches the password,
 *   so a re-run does not rewrite the file with a fresh salt
 */
func RenderHtpasswd(existing []byte, user, password string) ([]byte, error) {
	if strings.ContainsAny(user, ":\n") {
		return nil, fmt.Errorf("invalid basic-auth user %q", user)
	}
	sc := bufio.NewScanner(bytes.NewReader(existing))
	for sc.Scan() {
		name, hash, ok := strings.Cut(sc.Text(), ":")
		if ok && name == user && bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil {
			return []byte(sc.Text() + "\n"), nil
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return []byte(user + ":" + string(hash) + "\n"), nil
}
