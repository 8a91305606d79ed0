package key

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/jmcleod/securevault/internal/util"
)

const (
	jwkKeyType   = "oct"
	jwkAlgorithm = "A256GCM"
)

// jsonWebKey is the exported form of a Key, shaped like the JWK a browser's
// SubtleCrypto.exportKey("jwk", ...) produces for an AES-GCM key.
type jsonWebKey struct {
	KeyType     string   `json:"kty"`
	K           string   `json:"k"`
	Algorithm   string   `json:"alg,omitempty"`
	Extractable bool     `json:"ext"`
	KeyOps      []string `json:"key_ops,omitempty"`
}

func (k *Key) MarshalJSON() ([]byte, error) {
	var out []byte
	err := k.with(func(raw []byte) error {
		var err error
		out, err = json.Marshal(&jsonWebKey{
			KeyType:     jwkKeyType,
			K:           util.Base64URLEncode(raw),
			Algorithm:   jwkAlgorithm,
			Extractable: true,
			KeyOps:      []string{"encrypt", "decrypt"},
		})
		return err
	})
	return out, err
}

func (k *Key) UnmarshalJSON(b []byte) error {
	parsed, err := Parse(b)
	if err != nil {
		return err
	}
	k.enclave = parsed.enclave
	return nil
}

// Parse imports a key from its JWK JSON form.
func Parse(data []byte) (*Key, error) {
	var jwk jsonWebKey
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, fmt.Errorf("unmarshaling key JSON: %w", err)
	}
	if jwk.KeyType != jwkKeyType {
		return nil, fmt.Errorf("unsupported key type %q", jwk.KeyType)
	}
	if jwk.Algorithm != "" && jwk.Algorithm != jwkAlgorithm {
		return nil, fmt.Errorf("unsupported key algorithm %q", jwk.Algorithm)
	}
	if len(jwk.KeyOps) > 0 && (!slices.Contains(jwk.KeyOps, "encrypt") || !slices.Contains(jwk.KeyOps, "decrypt")) {
		return nil, fmt.Errorf("key does not permit encrypt and decrypt")
	}
	raw, err := util.Base64URLDecode(jwk.K)
	if err != nil {
		return nil, fmt.Errorf("decoding key material: %w", err)
	}
	return FromBytes(raw)
}
