package transport

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// This file derives QUIC packet-protection keys from traffic secrets
// (RFC 9001 section 5). The crypto session that produces those secrets
// is an out-of-scope collaborator (spec section 1(a)); this is the small,
// self-contained piece of "AEAD header/payload protection" (spec section
// 1(b)) that the core needs to turn secrets into openers/sealers.

// quicSaltV1 is the initial salt for QUIC version 1 (RFC 9001 section 5.2).
var quicSaltV1 = []byte{
	0x38, 0x76, 0x2c, 0xf7, 0xf5, 0x59, 0x34, 0xb3,
	0x4d, 0x17, 0x9a, 0xe6, 0xa4, 0xc8, 0x0c, 0xad,
	0xcc, 0xbb, 0x7f, 0x0a,
}

func hkdfExtract(salt, ikm []byte) []byte {
	mac := hmac.New(sha256.New, salt)
	mac.Write(ikm)
	return mac.Sum(nil)
}

// hkdfExpandLabel implements the TLS 1.3 / QUIC-TLS HkdfExpandLabel
// construction (RFC 8446 section 7.1) using SHA-256.
func hkdfExpandLabel(secret []byte, label string, length int) []byte {
	full := "tls13 " + label
	info := make([]byte, 0, 3+len(full)+1)
	info = binary.BigEndian.AppendUint16(info, uint16(length))
	info = append(info, byte(len(full)))
	info = append(info, full...)
	info = append(info, 0) // empty Context

	out := make([]byte, 0, length)
	var prev []byte
	mac := hmac.New(sha256.New, secret)
	for len(out) < length {
		mac.Reset()
		mac.Write(prev)
		mac.Write(info)
		mac.Write([]byte{byte(len(out)/sha256.Size + 1)})
		prev = mac.Sum(nil)
		out = append(out, prev...)
	}
	return out[:length]
}

const (
	aeadKeyLen = 16 // AES-128-GCM
	aeadIVLen  = 12
	aeadHPLen  = 16
)

// aeadKeys holds the derived packet-protection key material for one
// direction at one encryption level.
type aeadKeys struct {
	key []byte
	iv  []byte
	hp  []byte
}

func deriveAEADKeys(secret []byte) aeadKeys {
	return aeadKeys{
		key: hkdfExpandLabel(secret, "quic key", aeadKeyLen),
		iv:  hkdfExpandLabel(secret, "quic iv", aeadIVLen),
		hp:  hkdfExpandLabel(secret, "quic hp", aeadHPLen),
	}
}

// packetOpener decrypts packet payloads and removes header protection.
type packetOpener struct {
	aead  cipher.AEAD
	iv    []byte
	hpKey cipher.Block
}

// packetSealer encrypts packet payloads and applies header protection.
type packetSealer struct {
	aead  cipher.AEAD
	iv    []byte
	hpKey cipher.Block
}

func newOpener(k aeadKeys) (*packetOpener, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	hp, err := aes.NewCipher(k.hp)
	if err != nil {
		return nil, err
	}
	return &packetOpener{aead: aead, iv: k.iv, hpKey: hp}, nil
}

func newSealer(k aeadKeys) (*packetSealer, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	hp, err := aes.NewCipher(k.hp)
	if err != nil {
		return nil, err
	}
	return &packetSealer{aead: aead, iv: k.iv, hpKey: hp}, nil
}

func (s *packetSealer) nonce(packetNumber uint64) []byte {
	nonce := make([]byte, len(s.iv))
	copy(nonce, s.iv)
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-1-i] ^= byte(packetNumber >> (8 * i))
	}
	return nonce
}

func (s *packetOpener) nonce(packetNumber uint64) []byte {
	nonce := make([]byte, len(s.iv))
	copy(nonce, s.iv)
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-1-i] ^= byte(packetNumber >> (8 * i))
	}
	return nonce
}

// headerProtectionMask returns the 5-byte mask derived from sample
// (RFC 9001 section 5.4.1, AES-ECB variant).
func headerProtectionMask(block cipher.Block, sample []byte) []byte {
	mask := make([]byte, block.BlockSize())
	block.Encrypt(mask, sample)
	return mask[:5]
}

func (s *packetOpener) Overhead() int { return s.aead.Overhead() }
func (s *packetSealer) Overhead() int { return s.aead.Overhead() }

// Open decrypts and authenticates an AEAD-protected packet payload
// (RFC 9001 section 5.3). aad is the packet header bytes with the
// packet number restored and header protection removed.
func (s *packetOpener) Open(packetNumber uint64, aad, payload []byte) ([]byte, error) {
	return s.aead.Open(payload[:0], s.nonce(packetNumber), payload, aad)
}

// Seal encrypts and authenticates a packet payload in place, appending
// the authentication tag.
func (s *packetSealer) Seal(packetNumber uint64, aad, payload []byte) []byte {
	return s.aead.Seal(payload[:0], s.nonce(packetNumber), payload, aad)
}

// headerProtectionSample returns the header-protection sample starting numberOffset+4
// bytes into b (RFC 9001 section 5.4.2), used by both Open's caller
// (removing protection before Open) and Seal's caller (applying it
// after Seal).
func headerProtectionSample(b []byte, numberOffset int) []byte {
	start := numberOffset + 4
	if start+16 > len(b) {
		start = len(b) - 16
	}
	return b[start : start+16]
}

func (s *packetOpener) headerProtectionMask(sample []byte) []byte {
	return headerProtectionMask(s.hpKey, sample)
}

func (s *packetSealer) headerProtectionMask(sample []byte) []byte {
	return headerProtectionMask(s.hpKey, sample)
}

// initialAEAD derives both directions' Initial keys from a connection ID
// (RFC 9001 section 5.2); the teacher's conn.go already calls
// aead.init/aead.client/aead.server directly.
type initialAEAD struct {
	client aeadKeys
	server aeadKeys
}

func (s *initialAEAD) init(cid []byte) {
	initialSecret := hkdfExtract(quicSaltV1, cid)
	clientSecret := hkdfExpandLabel(initialSecret, "client in", 32)
	serverSecret := hkdfExpandLabel(initialSecret, "server in", 32)
	s.client = deriveAEADKeys(clientSecret)
	s.server = deriveAEADKeys(serverSecret)
}
