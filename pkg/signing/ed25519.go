// Copyright 2025 Certen Protocol
//
// Ed25519 Signing
// Domain-separated signing for packages and verification receipts.

package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// Domain separation tags. Signatures over different artifact kinds must
// never be interchangeable even if the raw digest happened to collide.
const (
	DomainPackage string = "zkpa-package-v1"
	DomainReceipt string = "zkpa-receipt-v1"
)

var (
	ErrInvalidSeedLength = errors.New("signing: seed must be exactly 32 bytes")
	ErrInvalidKeyHex     = errors.New("signing: invalid hex-encoded key")
	ErrInvalidMnemonic   = errors.New("signing: invalid mnemonic")
)

// Signer holds an Ed25519 keypair and produces domain-separated signatures.
// Read-only after construction, safe for concurrent use.
type Signer struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// NewSigner wraps an existing Ed25519 private key.
func NewSigner(priv ed25519.PrivateKey) *Signer {
	return &Signer{
		publicKey:  priv.Public().(ed25519.PublicKey),
		privateKey: priv,
	}
}

// NewSignerFromSeed derives a signer from a raw 32-byte seed.
func NewSignerFromSeed(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidSeedLength
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return NewSigner(priv), nil
}

// NewSignerFromSeedHex derives a signer from a hex-encoded 32-byte seed.
func NewSignerFromSeedHex(seedHex string) (*Signer, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyHex, err)
	}
	return NewSignerFromSeed(seed)
}

// NewSignerFromMnemonic derives a signer from a 25-word mnemonic: a
// standard 24-word BIP-39 mnemonic plus one extra word drawn from the same
// wordlist. The first 24 words are validated as an ordinary BIP-39
// mnemonic; the 25th is folded into seed derivation through the BIP-39
// passphrase parameter rather than the checksum, since 25 words carry 275
// bits, which is not a valid BIP-39 entropy-plus-checksum length (24 words
// carry the maximum, 264).
func NewSignerFromMnemonic(mnemonic, passphrase string) (*Signer, error) {
	words := strings.Fields(mnemonic)
	base := mnemonic
	if len(words) == 25 {
		base = strings.Join(words[:24], " ")
		passphrase = words[24] + "\x00" + passphrase
	}
	if !bip39.IsMnemonicValid(base) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(base, passphrase)
	return NewSignerFromSeed(seed[:ed25519.SeedSize])
}

// NewMnemonic generates a fresh 25-word mnemonic and the signer derived
// from it: a standard 24-word, 256-bit-entropy BIP-39 mnemonic with one
// additional CSPRNG-drawn word appended from the BIP-39 wordlist.
func NewMnemonic() (mnemonic string, signer *Signer, err error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", nil, fmt.Errorf("generate entropy: %w", err)
	}
	base, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", nil, fmt.Errorf("derive mnemonic: %w", err)
	}
	extra, err := randomWordlistWord()
	if err != nil {
		return "", nil, fmt.Errorf("draw 25th word: %w", err)
	}
	mnemonic = base + " " + extra

	signer, err = NewSignerFromMnemonic(mnemonic, "")
	if err != nil {
		return "", nil, err
	}
	return mnemonic, signer, nil
}

// randomWordlistWord draws a single word from the BIP-39 English wordlist
// using a CSPRNG, rejecting indices that would bias the selection toward
// the low end of the list.
func randomWordlistWord() (string, error) {
	wordlist := bip39.GetWordList()
	n := uint64(len(wordlist))
	limit := (uint64(1) << 32) / n * n

	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return "", err
		}
		v := uint64(binary.BigEndian.Uint32(buf[:]))
		if v < limit {
			return wordlist[v%n], nil
		}
	}
}

// NewSignerWithNewKey generates a fresh random keypair without a mnemonic,
// useful for tests and ephemeral verifier keys.
func NewSignerWithNewKey() (*Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewSigner(priv), nil
}

// domainMessage binds a digest to a domain tag so a signature produced for
// one artifact kind cannot be replayed as a signature over another.
func domainMessage(domain string, digest []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write(digest)
	return h.Sum(nil)
}

// Sign signs digest under the given domain tag.
func (s *Signer) Sign(domain string, digest []byte) []byte {
	msg := domainMessage(domain, digest)
	return ed25519.Sign(s.privateKey, msg)
}

// Verify checks a signature produced by Sign against the given public key.
func Verify(pub ed25519.PublicKey, domain string, digest, signature []byte) bool {
	msg := domainMessage(domain, digest)
	return ed25519.Verify(pub, msg, signature)
}

// PublicKey returns the signer's public key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.publicKey
}

// PublicKeyHex returns the hex-encoded public key, used as a signer
// identifier in package and receipt signature blocks.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.publicKey)
}
