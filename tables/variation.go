package tables

// hashF64 is an FNV-1a-style hash of (midi, seed) folded into a float in
// [0, 1). Used to derive deterministic, decorrelated per-note variation
// without storing any per-note random state.
func hashF64(midi int, seed uint32) float64 {
	const offsetBasis uint64 = 14695981039346656037
	const prime uint64 = 1099511628211

	h := offsetBasis
	data := [5]byte{
		byte(midi),
		byte(seed),
		byte(seed >> 8),
		byte(seed >> 16),
		byte(seed >> 24),
	}
	for _, b := range data {
		h ^= uint64(b)
		h *= prime
	}
	// Top 53 bits give a uniform float in [0, 1).
	return float64(h>>11) / float64(uint64(1)<<53)
}

// freqDetuneSeed and modeAmplitudeSeedBase decorrelate the two variation
// streams from each other and from every other LCG stream in the engine.
const (
	freqDetuneSeed        uint32 = 0xDEAD
	modeAmplitudeSeedBase uint32 = 0xBEEF
)

// FreqDetune returns a deterministic per-note fundamental detune factor in
// [-0.8%, +0.8%], so that unison reeds and identical notes across the
// register are not perfectly periodic copies of each other.
func FreqDetune(midi int) float64 {
	h := hashF64(midi, freqDetuneSeed)
	return (2*h - 1) * 0.008
}

// ModeAmplitudeOffsets returns a deterministic per-mode amplitude jitter in
// [-8%, +8%] for a given note, modeling manufacturing variance in reed
// geometry from one instrument to the next.
func ModeAmplitudeOffsets(midi int) [NumModes]float64 {
	var out [NumModes]float64
	for i := 0; i < NumModes; i++ {
		h := hashF64(midi, modeAmplitudeSeedBase+uint32(i))
		out[i] = (2*h - 1) * 0.08
	}
	return out
}
