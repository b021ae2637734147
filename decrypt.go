// decrypt.go: Decryption collaborators for credential entries
//
// Decryption is always performed on demand for a single entry. Nothing
// decrypted is stored in the index.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/agilira/go-errors"
	"golang.org/x/crypto/openpgp" //nolint:staticcheck // pass stores use classic OpenPGP messages
)

// Decrypter turns the encrypted file at path into plaintext.
type Decrypter interface {
	Decrypt(ctx context.Context, path string) (Secret, error)
}

// Password decrypts the entry with d and returns the first line of the
// plaintext. Any failure yields an ARCANUM_DECRYPT_FAILED error for this
// call only.
func (e Entry) Password(ctx context.Context, d Decrypter) (Secret, error) {
	if d == nil {
		return nil, errors.New(ErrCodeDecryptFailed, "no decrypter configured").
			WithContext("entry", e.Name)
	}
	plain, err := d.Decrypt(ctx, e.Location)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeDecryptFailed, "no secret available").
			WithContext("entry", e.Name)
	}
	defer plain.Zero()

	line := plain.FirstLine()
	if line.Len() == 0 {
		return nil, errors.New(ErrCodeDecryptFailed, "no secret available").
			WithContext("entry", e.Name).
			WithContext("reason", "empty first line")
	}
	return line, nil
}

// GPGDecrypter shells out to a gpg binary, letting gpg-agent handle keys
// and pinentry.
type GPGDecrypter struct {
	// Binary is the gpg executable. Default: "gpg"
	Binary string

	// ExtraArgs are inserted before --decrypt.
	ExtraArgs []string
}

// Decrypt runs gpg --decrypt on path.
func (g GPGDecrypter) Decrypt(ctx context.Context, path string) (Secret, error) {
	bin := g.Binary
	if bin == "" {
		bin = "gpg"
	}

	args := []string{"--quiet", "--batch", "--yes"}
	args = append(args, g.ExtraArgs...)
	args = append(args, "--decrypt", path)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...) // #nosec G204 -- binary and path come from local configuration
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		zeroBuffer(&stdout)
		return nil, errors.Wrap(err, ErrCodeDecryptFailed, "gpg decryption failed").
			WithContext("path", path).
			WithContext("stderr", firstLine(stderr.String()))
	}

	out := Secret(bytes.Clone(stdout.Bytes()))
	zeroBuffer(&stdout)
	return out, nil
}

// KeyringDecrypter decrypts in process with an OpenPGP keyring. It is safe
// for concurrent use. Locked private keys are unlocked with Passphrase on the
// first Decrypt and stay unlocked for the lifetime of the decrypter.
type KeyringDecrypter struct {
	Keyring    openpgp.EntityList
	Passphrase Secret

	unlockOnce sync.Once
}

// NewKeyringDecrypter reads a keyring, armored or binary, from r.
func NewKeyringDecrypter(r io.Reader, armored bool, passphrase Secret) (*KeyringDecrypter, error) {
	var (
		keyring openpgp.EntityList
		err     error
	)
	if armored {
		keyring, err = openpgp.ReadArmoredKeyRing(r)
	} else {
		keyring, err = openpgp.ReadKeyRing(r)
	}
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeDecryptFailed, "cannot read OpenPGP keyring")
	}
	return &KeyringDecrypter{Keyring: keyring, Passphrase: passphrase}, nil
}

// LoadKeyringFile opens path and reads its keyring. Files ending in ".asc"
// are treated as armored.
func LoadKeyringFile(path string, passphrase Secret) (*KeyringDecrypter, error) {
	f, err := os.Open(path) // #nosec G304 -- keyring path chosen by the user
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeDecryptFailed, "cannot open keyring file").
			WithContext("path", path)
	}
	defer func() { _ = f.Close() }()
	return NewKeyringDecrypter(f, strings.HasSuffix(path, ".asc"), passphrase)
}

// Decrypt reads and decrypts the OpenPGP message stored at path.
func (k *KeyringDecrypter) Decrypt(ctx context.Context, path string) (Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path) // #nosec G304 -- entry locations come from the store walk
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeDecryptFailed, "cannot open encrypted file").
			WithContext("path", path)
	}
	defer func() { _ = f.Close() }()

	k.unlockOnce.Do(k.unlock)

	// ReadMessage calls the prompt again after every failed attempt.
	prompted := false
	prompt := func(keys []openpgp.Key, symmetric bool) ([]byte, error) {
		if prompted {
			return nil, errors.New(ErrCodeDecryptFailed, "passphrase rejected")
		}
		prompted = true
		return k.prompt(symmetric)
	}

	md, err := openpgp.ReadMessage(f, k.Keyring, prompt, nil)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeDecryptFailed, "cannot decrypt OpenPGP message").
			WithContext("path", path)
	}

	plain, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeDecryptFailed, "cannot read decrypted payload").
			WithContext("path", path)
	}
	return Secret(plain), nil
}

// unlock decrypts every locked private key and subkey of the keyring.
// Keys the passphrase does not open stay locked. PrivateKey.Decrypt mutates
// the key, so it only ever runs here.
func (k *KeyringDecrypter) unlock() {
	if len(k.Passphrase) == 0 {
		return
	}
	for _, entity := range k.Keyring {
		if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
			_ = entity.PrivateKey.Decrypt([]byte(k.Passphrase))
		}
		for _, sub := range entity.Subkeys {
			if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
				_ = sub.PrivateKey.Decrypt([]byte(k.Passphrase))
			}
		}
	}
}

// prompt is only reached when no unlocked key fits the message. It offers
// the passphrase for symmetric messages and fails otherwise, which also
// stops ReadMessage from retrying.
func (k *KeyringDecrypter) prompt(symmetric bool) ([]byte, error) {
	if len(k.Passphrase) == 0 {
		return nil, errors.New(ErrCodeDecryptFailed, "private key is locked and no passphrase was provided")
	}
	if symmetric {
		return k.Passphrase.Bytes(), nil
	}
	return nil, errors.New(ErrCodeDecryptFailed, "passphrase does not unlock any candidate key")
}

func zeroBuffer(b *bytes.Buffer) {
	raw := b.Bytes()
	for i := range raw {
		raw[i] = 0
	}
	b.Reset()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
