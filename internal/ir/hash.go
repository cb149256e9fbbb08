package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for changing the encoding later.
const (
	DomainProgram  = "provex/program/v1"
	DomainArtifact = "provex/artifact/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProgramDigest hashes the canonical form of an evaluated-program snapshot.
// Two snapshots with the same relations, tuples, symbols and recorded
// subproofs produce the same digest.
func ProgramDigest(canonical map[string]any) (string, error) {
	data, err := MarshalCanonical(canonical)
	if err != nil {
		return "", fmt.Errorf("ProgramDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, data), nil
}

// ArtifactDigest hashes the bytes of a proof artifact. Re-running the same
// program with the same seeds must reproduce it.
func ArtifactDigest(artifact []byte) string {
	return hashWithDomain(DomainArtifact, artifact)
}
