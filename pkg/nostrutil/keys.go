package nostrutil

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// ParsedKey holds a hex private+public key pair.
type ParsedKey struct {
	PrivHex string
	PubHex  string
}

// ParsePrivKey accepts:
// - nsec1...  (NIP-19)
// - hex-encoded 32-byte privkey
func ParsePrivKey(s string) (*ParsedKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty key")
	}

	privHex := s
	if strings.HasPrefix(s, "nsec1") {
		decoded, err := decodeNIP19(s, "nsec")
		if err != nil {
			return nil, err
		}
		privHex = decoded
	}

	pubHex, err := PubKeyFromPriv(privHex)
	if err != nil {
		return nil, err
	}
	return &ParsedKey{PrivHex: strings.ToLower(privHex), PubHex: pubHex}, nil
}

// PubKeyFromPriv derives the x-only (BIP-340) public key nostr uses.
func PubKeyFromPriv(privHex string) (string, error) {
	b, err := hex.DecodeString(privHex)
	if err != nil {
		return "", errors.New("invalid privkey: not nsec and not hex")
	}
	if len(b) != 32 {
		return "", fmt.Errorf("invalid privkey: want 32 bytes, got %d", len(b))
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return hex.EncodeToString(schnorr.SerializePubKey(priv.PubKey())), nil
}

// ParsePubKey accepts:
// - npub1...
// - hex
func ParsePubKey(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty pubkey")
	}

	if strings.HasPrefix(s, "npub1") {
		return decodeNIP19(s, "npub")
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return "", errors.New("invalid pubkey: not npub and not hex")
	}
	if _, err := schnorr.ParsePubKey(b); err != nil {
		return "", fmt.Errorf("invalid pubkey: %w", err)
	}
	return strings.ToLower(s), nil
}

// decodeNIP19 returns the hex payload of a bech32 nsec/npub string.
func decodeNIP19(s, wantPrefix string) (string, error) {
	prefix, data, err := nip19.Decode(s)
	if err != nil {
		return "", err
	}
	if prefix != wantPrefix {
		return "", fmt.Errorf("expected %s, got %s", wantPrefix, prefix)
	}
	switch v := data.(type) {
	case string:
		return v, nil
	case []byte:
		return hex.EncodeToString(v), nil
	}
	return "", fmt.Errorf("invalid %s payload", wantPrefix)
}
