package auth

import "strings"

// Base32Alphabet is the RFC4648 alphabet. Secrets and backup codes are drawn from it.
const Base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// DecodeBase32 decodes an RFC4648 base32 string leniently.
//
// Input is upper-cased and any character outside the alphabet (padding,
// dashes, spaces) is skipped rather than rejected, so secrets copied with
// formatting from authenticator apps still decode. A trailing partial byte
// is discarded. A corrupted secret therefore decodes to different bytes
// instead of failing.
func DecodeBase32(s string) []byte {
	s = strings.ToUpper(s)
	out := make([]byte, 0, len(s)*5/8)

	var buffer uint32
	var bits uint
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(Base32Alphabet, s[i])
		if idx < 0 {
			continue
		}
		buffer = buffer<<5 | uint32(idx)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buffer>>bits))
			buffer &= 1<<bits - 1
		}
	}
	return out
}
