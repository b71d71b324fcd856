package auth

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const signatureLength = 65

// CanonicalIdentity validates a hex wallet address and returns its
// checksummed form, so identities compare case-insensitively.
func CanonicalIdentity(identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", &ValidationError{Field: "identity", Reason: "is required"}
	}
	if !common.IsHexAddress(identity) {
		return "", &ValidationError{Field: "identity", Reason: "is not a hex address"}
	}
	return common.HexToAddress(identity).Hex(), nil
}

// decodeSignature parses a 65-byte [R || S || V] signature and normalises V
// to 0/1 as expected by the recovery routine.
func decodeSignature(signature string) ([]byte, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return nil, &ValidationError{Field: "signature", Reason: "is required"}
	}
	if !strings.HasPrefix(signature, "0x") && !strings.HasPrefix(signature, "0X") {
		signature = "0x" + signature
	}

	sig, err := hexutil.Decode(strings.ToLower(signature))
	if err != nil {
		return nil, &ValidationError{Field: "signature", Reason: "is not valid hex"}
	}
	if len(sig) != signatureLength {
		return nil, &ValidationError{Field: "signature", Reason: "must be 65 bytes"}
	}

	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	return sig, nil
}

// recoverSigner returns the address whose key produced an EIP-191
// personal_sign signature over message.
func recoverSigner(message string, sig []byte) (common.Address, error) {
	hash := accounts.TextHash([]byte(message))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifySignature checks that signature over message was made by identity.
// Malformed input yields a *ValidationError, a wrong signer ErrUnauthorized.
func VerifySignature(identity, message, signature string) (string, error) {
	canonical, err := CanonicalIdentity(identity)
	if err != nil {
		return "", err
	}
	if message == "" {
		return "", &ValidationError{Field: "message", Reason: "is required"}
	}
	sig, err := decodeSignature(signature)
	if err != nil {
		return "", err
	}

	signer, err := recoverSigner(message, sig)
	if err != nil {
		return "", ErrUnauthorized
	}
	if signer.Hex() != canonical {
		return "", ErrUnauthorized
	}
	return canonical, nil
}
