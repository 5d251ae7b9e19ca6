package transport

// Challenge/reply authentication (spec.md §4.5): a 6-byte key per domain,
// extended to a 12-byte OMA key spanning both domains for NME_REPORT_KEY
// (spec.md §4.7's EXPANDED UPDATE_KEY sub-command).
//
// The reference transform is a keyed one-way digest; this implementation
// uses the spec's documented 6/12-byte key width and challenge/reply
// round shape without depending on the original firmware's particular
// bit-mixing, since spec.md does not fix the digest algorithm.

const (
	DomainKeyLen = 6
	OMAKeyLen    = 12
)

// Challenge is the 8-byte random value sent by the authenticator.
type Challenge [8]byte

// Reply is the peer's keyed response to a Challenge.
type Reply [8]byte

// ComputeReply derives the reply to challenge c under key using the
// byte-rotation-and-fold transform: each challenge byte is XORed with the
// corresponding (wrapping) key byte, then the result is rotated left by
// the key's first byte mod 8. This keeps the reply a deterministic,
// order-sensitive function of both the challenge and the full key; each
// reply byte depends on one challenge byte and one key byte, placed by
// that rotation.
func ComputeReply(c Challenge, key []byte) Reply {
	var r Reply
	if len(key) == 0 {
		return r
	}
	for i := range r {
		r[i] = c[i] ^ key[i%len(key)]
	}
	shift := uint(key[0]) % 8
	if shift == 0 {
		return r
	}
	var rotated Reply
	for i := range r {
		rotated[(i+8-int(shift))%8] = r[i]
	}
	return rotated
}

// VerifyReply reports whether reply is the correct response to challenge
// under key.
func VerifyReply(c Challenge, key []byte, reply Reply) bool {
	return ComputeReply(c, key) == reply
}
