package extpubkey

import (
	"github.com/shieldwallet/walletcore/addresscodec"
	"github.com/shieldwallet/walletcore/wallettypes"
)

// DeriveAddress derives the chain/index child of k (unhardened, public
// derivation only — k never carries private material) and encodes it as
// an address of k's own script type (§4.3 derive_address). chain is 0
// for receive, 1 for change.
func (k *ExtPubKey) DeriveAddress(chain, index uint32) (*wallettypes.Address, error) {
	child, err := k.key.Derive(chain)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidPath, err, "failed to derive chain %d", chain)
	}
	leaf, err := child.Derive(index)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidPath, err, "failed to derive index %d", index)
	}
	pub, err := leaf.ECPubKey()
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindInvalidPath, err, "failed to materialize derived public key")
	}

	addr, err := addresscodec.Encode(k.network, k.scriptType, pub)
	if err != nil {
		return nil, err
	}
	addr.Path = wallettypes.DerivationPath{
		{Index: chain, Hardened: false},
		{Index: index, Hardened: false},
	}
	addr.AddressIndex = index
	addr.HasPath = true
	return addr, nil
}
