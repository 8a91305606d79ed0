package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/jmcleod/securevault/internal/util"
)

// markupFree generates non-empty strings that neither neutralization nor
// output escaping alter.
func markupFree() gopter.Gen {
	return gen.AnyString().SuchThat(func(s string) bool {
		return s != "" && neutralize(s) == s && outputEscape.Replace(s) == s
	})
}

func TestSealedRecordProperties(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t)

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("decrypt inverts encrypt", prop.ForAll(
		func(s string) bool {
			sealed, err := v.Encrypt(ctx, s)
			if err != nil {
				return false
			}
			got, err := v.Decrypt(ctx, sealed)
			return err == nil && got == s
		},
		markupFree(),
	))

	properties.Property("encrypt is never deterministic", prop.ForAll(
		func(s string) bool {
			a, errA := v.Encrypt(ctx, s)
			b, errB := v.Encrypt(ctx, s)
			return errA == nil && errB == nil && a != b
		},
		markupFree(),
	))

	properties.Property("any flipped iv, ciphertext or tag byte is rejected", prop.ForAll(
		func(s string, pos int, bit uint8) bool {
			sealed, err := v.Encrypt(ctx, s)
			if err != nil {
				return false
			}
			raw, err := util.Base64Decode(sealed)
			if err != nil {
				return false
			}
			i := SaltSize + pos%(len(raw)-SaltSize)
			raw[i] ^= 1 << (bit % 8)
			_, err = v.Decrypt(ctx, util.Base64Encode(raw))
			return err != nil
		},
		markupFree(),
		gen.IntRange(0, 1<<16),
		gen.UInt8(),
	))

	properties.Property("records shorter than the frame are corrupt", prop.ForAll(
		func(n int) bool {
			raw, err := util.RandomBytes(n)
			if err != nil {
				return false
			}
			_, err = v.Decrypt(ctx, util.Base64Encode(raw))
			return err != nil && errors.Is(err, ErrCorruptData)
		},
		gen.IntRange(1, recordOverhead-1),
	))

	properties.TestingRun(t)
}

func TestPassphraseProperties(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t, WithoutOutputEscaping())

	params := gopter.DefaultTestParameters()
	// Each case runs PBKDF2 several times at the full work factor.
	params.MinSuccessfulTests = 5
	properties := gopter.NewProperties(params)

	properties.Property("passphrase round trip and wrong-passphrase rejection", prop.ForAll(
		func(s, p1, p2 string) bool {
			if p1 == p2 {
				p2 += "-other"
			}
			sealed, err := v.Encrypt(ctx, s, WithPassphrase(p1))
			if err != nil {
				return false
			}
			got, err := v.Decrypt(ctx, sealed, WithPassphrase(p1))
			if err != nil || got != s {
				return false
			}
			_, err = v.Decrypt(ctx, sealed, WithPassphrase(p2))
			return err != nil
		},
		markupFree(),
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
