package chanrelay

// seq is a per-channel monotonic counter assigned at publish time. It wraps
// at 2^32 and must never be compared with the raw `>` operator -- use
// seqGT, which performs the standard wrap-safe "newer than" comparison.
type seq = uint32

// seqGT reports whether a is newer than b under modular wraparound. This is
// the only comparison the engine ever performs between two sequence
// numbers; a naive a > b silently breaks resume once a channel's counter
// wraps past 2^32 published messages.
func seqGT(a, b seq) bool {
	return int32(a-b) > 0
}
