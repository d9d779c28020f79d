// Package verify checks downloaded archives against a SHA-256 digest or an
// OpenPGP detached signature before they are extracted.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
	"github.com/ZebulonRouseFrantzich/fontman/internal/logging"
)

// Method names a verification technique.
type Method string

const (
	MethodSHA256 Method = "sha256"
	MethodPGP    Method = "openpgp"
)

// Expectation describes what an archive must satisfy. The zero value
// requests no verification.
type Expectation struct {
	// SHA256 is the expected hex digest. Case is ignored.
	SHA256 string
	// SignaturePath is a detached signature, armored or binary.
	SignaturePath string
	// KeyringPath holds the public keys that may have made the signature.
	KeyringPath string
}

// Empty reports whether nothing is requested.
func (e Expectation) Empty() bool {
	return e.SHA256 == "" && e.SignaturePath == "" && e.KeyringPath == ""
}

// Error reports a failed check.
type Error struct {
	Method Method
	Path   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s verification of %s failed: %v", e.Method, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrChecksumMismatch is wrapped by a checksum failure.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Verifier runs the checks of an Expectation.
type Verifier struct {
	log logging.Logger
}

// NewVerifier creates a verifier. A nil logger is replaced by a no-op one.
func NewVerifier(logger logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Verifier{log: logger}
}

// Verify checks archivePath against exp. The checksum runs before the
// signature. A signature requires a keyring and vice versa.
func (v *Verifier) Verify(archivePath string, exp Expectation) error {
	if exp.Empty() {
		return nil
	}

	if exp.SHA256 != "" {
		if err := v.verifySHA256(archivePath, exp.SHA256); err != nil {
			return &Error{Method: MethodSHA256, Path: archivePath, Err: err}
		}
		v.log.Debug("checksum verified", "path", archivePath)
	}

	if exp.SignaturePath != "" || exp.KeyringPath != "" {
		if exp.SignaturePath == "" || exp.KeyringPath == "" {
			return &Error{Method: MethodPGP, Path: archivePath, Err: errors.New("signature and keyring must be given together")}
		}
		signer, err := v.verifySignature(archivePath, exp.SignaturePath, exp.KeyringPath)
		if err != nil {
			return &Error{Method: MethodPGP, Path: archivePath, Err: err}
		}
		v.log.Debug("signature verified", "path", archivePath, "key", signer)
	}

	return nil
}

func (v *Verifier) verifySHA256(path, expected string) error {
	actual, err := FileSHA256(path)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}
	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return fmt.Errorf("%w: actual %s, expected %s", ErrChecksumMismatch, actual, expected)
	}
	return nil
}

// verifySignature returns the hex key ID of the signer.
func (v *Verifier) verifySignature(path, sigPath, keyringPath string) (string, error) {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return "", err
	}

	archive, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	sig, err := os.Open(sigPath)
	if err != nil {
		return "", fmt.Errorf("open signature: %w", err)
	}
	defer sig.Close()

	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, archive, sig, nil)
	if err != nil {
		if _, serr := archive.Seek(0, io.SeekStart); serr != nil {
			return "", fmt.Errorf("rewind archive: %w", serr)
		}
		if _, serr := sig.Seek(0, io.SeekStart); serr != nil {
			return "", fmt.Errorf("rewind signature: %w", serr)
		}
		signer, err = openpgp.CheckDetachedSignature(keyring, archive, sig, nil)
	}
	if err != nil {
		return "", fmt.Errorf("verify signature: %w", err)
	}

	return signer.PrimaryKey.KeyIdString(), nil
}

func loadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("rewind keyring: %w", serr)
		}
		keyring, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}
	return keyring, nil
}

// FileSHA256 returns the lowercase hex SHA-256 digest of a file.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
