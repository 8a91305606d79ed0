package vault

import (
	"encoding/base64"

	"github.com/jmcleod/securevault/internal/util"
)

// Sealed record layout: salt || iv || ciphertext || tag, base64 encoded.
const (
	SaltSize = 16
	IVSize   = util.GCMNonceSize
	TagSize  = util.GCMTagSize

	recordOverhead = SaltSize + IVSize + TagSize
)

// maxSealedLen is the longest base64 string Decrypt will try to decode.
var maxSealedLen = base64.StdEncoding.EncodedLen(MaxPlaintextSize + recordOverhead)

// sealedRecord is a decoded record. The salt is present in every record,
// including session-key records where it takes no part in key derivation.
type sealedRecord struct {
	salt []byte
	// body is iv || ciphertext || tag, the form key.Key.Seal produces.
	body []byte
}

func (r sealedRecord) encode() string {
	return util.Base64Encode(util.Concat(r.salt, r.body))
}

func decodeRecord(op, sealed string) (sealedRecord, error) {
	if len(sealed) > maxSealedLen {
		return sealedRecord{}, &EncodingError{Op: op, Err: ErrPayloadTooLarge}
	}
	raw, err := util.Base64Decode(sealed)
	if err != nil {
		return sealedRecord{}, &EncodingError{Op: op, Err: ErrInvalidEncoding}
	}
	if len(raw) < recordOverhead {
		return sealedRecord{}, &EncodingError{Op: op, Err: errCorruptTooShort(len(raw))}
	}
	return sealedRecord{salt: raw[:SaltSize], body: raw[SaltSize:]}, nil
}

// plaintextLen is the length of the plaintext the record claims to hold.
func (r sealedRecord) plaintextLen() int {
	return len(r.body) - IVSize - TagSize
}
