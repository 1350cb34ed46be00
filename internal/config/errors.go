package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidTarget indicates a quality target outside 0-100.
	ErrInvalidTarget = errors.New("quality target out of range")

	// ErrInvalidEpsilon indicates a non-positive epsilon in bitrate mode.
	ErrInvalidEpsilon = errors.New("epsilon out of range")

	// ErrInvalidMode indicates an unknown control mode name.
	ErrInvalidMode = errors.New("invalid control mode")

	// ErrInvalidQuantizer indicates a default quantizer outside 0-68.
	ErrInvalidQuantizer = errors.New("quantizer out of range")

	// ErrConflictingSpeedGoal indicates both a throughput target and a cost ratio were requested.
	ErrConflictingSpeedGoal = errors.New("throughput target and cost ratio are mutually exclusive")

	// ErrInvalidGoal indicates an unknown speed goal name.
	ErrInvalidGoal = errors.New("invalid speed goal")

	// ErrInvalidThroughput indicates a non-positive throughput target.
	ErrInvalidThroughput = errors.New("throughput target out of range")

	// ErrInvalidCores indicates a non-positive core multiplier.
	ErrInvalidCores = errors.New("core multiplier out of range")

	// ErrInvalidBitDepth indicates an output bit depth other than 8, 10 or 12.
	ErrInvalidBitDepth = errors.New("invalid bit depth")

	// ErrInvalidCPULevel indicates a fast cpu level outside 1-31.
	ErrInvalidCPULevel = errors.New("cpu level out of range")

	// ErrInvalidResolution indicates a negative test width or height.
	ErrInvalidResolution = errors.New("invalid test resolution")

	// ErrInvalidConfigFile indicates a config file that does not match the schema.
	ErrInvalidConfigFile = errors.New("invalid config file")

	// ErrMissingInput indicates no input file was provided.
	ErrMissingInput = errors.New("input file required")
)
