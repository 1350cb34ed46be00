// Package ffmpeg provides FFmpeg command building and execution.
package ffmpeg

// ConvertParams describes a conversion of a video into raw YUV frames.
type ConvertParams struct {
	InputPath  string
	OutputPath string

	// Width and Height are the output size. Zero keeps the input size.
	Width  int
	Height int

	PixelFormat string

	// Duration is the input length in seconds, used for progress.
	Duration float64
}

// ScaledResolution returns the test clip size for a source of srcW x srcH.
// A zero height keeps the source size. A zero width follows the source
// aspect ratio, rounded down to an even value for 4:2:0 chroma.
func ScaledResolution(srcW, srcH, width, height int) (int, int) {
	if height <= 0 {
		return srcW, srcH
	}
	if width <= 0 {
		if srcH <= 0 {
			return srcW, height
		}
		width = int(float64(height) * float64(srcW) / float64(srcH))
		width -= width % 2
	}
	return width, height
}

// RawFrameSize returns the byte size of one 4:2:0 frame.
func RawFrameSize(width, height, bitDepth int) uint64 {
	bytesPerSample := uint64(1)
	if bitDepth > 8 {
		bytesPerSample = 2
	}
	return uint64(width) * uint64(height) * 3 / 2 * bytesPerSample
}
