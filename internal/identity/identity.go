// Package identity generates the node's libp2p peer identity.
package identity

import (
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Generate creates a fresh Ed25519 keypair for this process. Identity is
// never persisted to disk — a restart gets a new peer ID, matching the
// overlay's treatment of membership as ephemeral rather than a durable
// credential.
func Generate() (crypto.PrivKey, error) {
	priv, _, err := crypto.GenerateKeyPair(crypto.Ed25519, -1)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return priv, nil
}

// PeerID derives the peer ID for priv.
func PeerID(priv crypto.PrivKey) (peer.ID, error) {
	id, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("derive peer ID: %w", err)
	}
	return id, nil
}
