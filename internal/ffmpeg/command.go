package ffmpeg

// BuildConvertArgs returns the ffmpeg arguments that decode params.InputPath
// into raw frames at params.OutputPath. Audio and subtitles are dropped.
func BuildConvertArgs(params *ConvertParams) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", params.InputPath,
		"-map", "0:v:0",
		"-an", "-sn", "-dn",
	}

	if vf := scaleFilters(params.Width, params.Height); vf != "" {
		args = append(args, "-vf", vf)
	}

	pixFmt := params.PixelFormat
	if pixFmt == "" {
		pixFmt = "yuv420p"
	}
	args = append(args, "-pix_fmt", pixFmt, "-f", "rawvideo", params.OutputPath)
	return args
}
