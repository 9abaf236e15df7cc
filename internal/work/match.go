package work

// BitMatch reports whether left and right agree on their trailing bits bits.
//
// Buffers shorter than the comparison window are treated as if padded with
// zero bytes on their most significant side, so an empty buffer compares as
// all zeros. The window is split into bits/8 whole trailing bytes, which must
// be equal, and bits%8 low bits of the byte just before them. A threshold of
// zero (or less) always matches.
func BitMatch(bits int, left, right []byte) bool {
	if bits <= 0 {
		return true
	}

	whole, rem := bits/8, bits%8
	for i := 1; i <= whole; i++ {
		if byteFromEnd(left, i) != byteFromEnd(right, i) {
			return false
		}
	}
	if rem == 0 {
		return true
	}

	mask := byte(1)<<rem - 1
	return byteFromEnd(left, whole+1)&mask == byteFromEnd(right, whole+1)&mask
}

// byteFromEnd returns the i-th byte counted from the end (1-based),
// or zero when b is too short.
func byteFromEnd(b []byte, i int) byte {
	if i > len(b) {
		return 0
	}
	return b[len(b)-i]
}
