// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import "github.com/zeebo/blake3"

// frameDomainKey is the ASCII domain name zero-padded to the 32 bytes
// BLAKE3 keyed mode requires. Changing it invalidates every existing
// capture.
var frameDomainKey = [32]byte{
	'x', 'y', 'v', '.', 'c', 'a', 'p', 't', 'u', 'r', 'e', '.',
	'f', 'r', 'a', 'm', 'e',
}

// Digest returns the keyed BLAKE3 digest stored alongside frame.
func Digest(frame []byte) []byte {
	hasher, err := blake3.NewKeyed(frameDomainKey[:])
	if err != nil {
		// Only a key of the wrong length fails.
		panic("capture: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(frame)
	return hasher.Sum(nil)
}
