package audio

// MixInto adds src into dst sample by sample, clipping to the int16 range.
func MixInto(dst, src []int16) {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		mixed := int32(dst[i]) + int32(src[i])
		if mixed > 32767 {
			mixed = 32767
		} else if mixed < -32768 {
			mixed = -32768
		}
		dst[i] = int16(mixed)
	}
}

// Gain scales a frame by the given factor, clipping to the int16 range.
func Gain(frame []int16, factor float64) []int16 {
	out := make([]int16, len(frame))
	for i, s := range frame {
		scaled := float64(s) * factor
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		out[i] = int16(scaled)
	}
	return out
}
