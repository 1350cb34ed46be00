package ffmpeg

import "fmt"

// scaleFilters returns the -vf chain that resizes the test clip to
// width x height with square pixels, or "" when either size is unset.
// The raw clip carries no aspect metadata, so the encoder and the scorer
// both assume square pixels.
func scaleFilters(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	return fmt.Sprintf("scale=%d:%d,setsar=1", width, height)
}
