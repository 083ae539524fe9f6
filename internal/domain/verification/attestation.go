package verification

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/okian/forgeboard/internal/domain/types"
)

// Offline attestations let an oracle sign a verification decision out of
// band. The core's only job is to recover the signer identity from the
// compact signature and check it against the oracle set; key custody and
// distribution are an external collaborator's concern.

// attestationDomain separates attestation digests from any other signed
// payloads an oracle key may produce.
const attestationDomain = "forgeboard.milestone.verify.v1"

// AttestationDigest returns the digest an oracle signs to attest
// (milestoneID, xpMultiplier).
func AttestationDigest(id types.ID, multiplier uint64) [32]byte {
	msg := fmt.Sprintf("%s|milestone:%d|multiplier:%d", attestationDomain, id, multiplier)
	return sha256.Sum256([]byte(msg))
}

// SignAttestation produces a compact recoverable signature over
// (milestoneID, xpMultiplier) with the given oracle key.
func SignAttestation(key *secp256k1.PrivateKey, id types.ID, multiplier uint64) []byte {
	digest := AttestationDigest(id, multiplier)
	return ecdsa.SignCompact(key, digest[:], true)
}

// IdentityFromPubKey derives the ledger identity for a public key: the
// hex form of its compressed serialization. Oracle sets store identities
// in this form for keys that sign offline attestations.
func IdentityFromPubKey(pub *secp256k1.PublicKey) types.Identity {
	return types.Identity(hex.EncodeToString(pub.SerializeCompressed()))
}

// VerifyWithSignature verifies a pending milestone on the strength of an
// offline oracle attestation. The recovered signer must be a member of
// the oracle set.
func (e *Engine) VerifyWithSignature(ctx context.Context, id types.ID, multiplier uint64, sig []byte) error {
	digest := AttestationDigest(id, multiplier)
	pub, _, err := ecdsa.RecoverCompact(sig, digest[:])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	signer := IdentityFromPubKey(pub)
	if !e.auth.IsOracle(ctx, signer) {
		return ErrUnauthorized
	}
	return e.verifyAs(ctx, signer, id, multiplier)
}
