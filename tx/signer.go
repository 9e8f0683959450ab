// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
	"github.com/pkg/errors"
)

// Sign computes a Schnorr signature over t's core bytes and attaches it,
// populating SenderPubKey from priv.
func Sign(t *Transaction, priv *secp256k1.PrivateKey) error {
	t.SenderPubKey = priv.PubKey().SerializeCompressed()
	digest := t.Hash()
	sig, err := schnorr.Sign(priv, digest.Bytes())
	if err != nil {
		return errors.Wrap(err, "tx: sign")
	}
	t.Signature = sig.Serialize()
	return nil
}

// VerifySignature verifies t's Schnorr signature against its SenderPubKey.
func (t *Transaction) VerifySignature() bool {
	pub, err := secp256k1.ParsePubKey(t.SenderPubKey)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(t.Signature)
	if err != nil {
		return false
	}
	digest := t.Hash()
	return sig.Verify(digest.Bytes(), pub)
}
