package sshserver

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// LoadAuthorizedKeys parses an OpenSSH authorized_keys file. Blank lines and
// comments are skipped.
func LoadAuthorizedKeys(path string) ([]ssh.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read authorized keys: %w", err)
	}
	var keys []ssh.PublicKey
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		key, _, _, _, err := ssh.ParseAuthorizedKey(line)
		if err != nil {
			return nil, fmt.Errorf("parse authorized keys line %d: %w", i+1, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
