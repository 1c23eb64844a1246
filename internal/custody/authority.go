package custody

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// AuthorityKind tags the Authority variant.
type AuthorityKind uint8

const (
	KindExternalSigner AuthorityKind = iota + 1
	KindSystemOwned
)

func (k AuthorityKind) String() string {
	switch k {
	case KindExternalSigner:
		return "external_signer"
	case KindSystemOwned:
		return "system_owned"
	default:
		return fmt.Sprintf("AuthorityKind(%d)", uint8(k))
	}
}

// Authority is who authorizes a transfer out of an account: either a key
// that signed the current call, or the executing program itself, proven
// by the seeds of its program address.
type Authority struct {
	Kind  AuthorityKind
	Key   solana.PublicKey
	Seeds [][]byte
}

// ExternalSigner authorizes with a key that must have signed the call.
func ExternalSigner(key solana.PublicKey) Authority {
	return Authority{Kind: KindExternalSigner, Key: key}
}

// SystemOwned authorizes with the program address derived from seeds
// (bump included) under the executing program.
func SystemOwned(seeds ...[]byte) Authority {
	return Authority{Kind: KindSystemOwned, Seeds: seeds}
}

func (a Authority) String() string {
	if a.Kind == KindExternalSigner {
		return fmt.Sprintf("%s(%s)", a.Kind, a.Key)
	}
	return fmt.Sprintf("%s(%d seeds)", a.Kind, len(a.Seeds))
}
