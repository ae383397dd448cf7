package osmextract

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	// DEFAULT_MEMORY_LIMIT is default number of elements of every staging sequence kept in memory
	DEFAULT_MEMORY_LIMIT = 1 << 20
	// DEFAULT_BUFFER_SIZE is default size of per-worker buffers
	DEFAULT_BUFFER_SIZE = 4096
)

// ViaWayTieBreak decides which endpoint of via-way becomes pivot when from-way touches both of them
type ViaWayTieBreak uint16

const (
	// TIE_BREAK_DROP drops such restrictions
	TIE_BREAK_DROP = ViaWayTieBreak(iota + 1)
	// TIE_BREAK_FIRST picks the first node of via-way
	TIE_BREAK_FIRST
	// TIE_BREAK_LAST picks the last node of via-way
	TIE_BREAK_LAST
)

func (iotaIdx ViaWayTieBreak) String() string {
	return [...]string{"drop", "first", "last"}[iotaIdx-1]
}

// ParseViaWayTieBreak returns tie-break policy by its name
func ParseViaWayTieBreak(str string) (ViaWayTieBreak, error) {
	switch str {
	case "drop":
		return TIE_BREAK_DROP, nil
	case "first":
		return TIE_BREAK_FIRST, nil
	case "last":
		return TIE_BREAK_LAST, nil
	default:
		return 0, fmt.Errorf("Unknown via-way tie-break policy '%s'", str)
	}
}

type config struct {
	tempDir     string
	memoryLimit int
	bufferSize  int
	verbose     bool
	tieBreak    ViaWayTieBreak
	logger      logrus.FieldLogger
}

func (cfg *config) String() string {
	return fmt.Sprintf(`
Extraction containers parameters:
	temp_dir: '%s'
	memory_limit: %d
	buffer_size: %d
	verbose: %t
	via_way_tie_break: '%s'
	`,
		cfg.tempDir,
		cfg.memoryLimit,
		cfg.bufferSize,
		cfg.verbose,
		cfg.tieBreak,
	)
}

func defaultConfig() config {
	return config{
		tempDir:     os.TempDir(),
		memoryLimit: DEFAULT_MEMORY_LIMIT,
		bufferSize:  DEFAULT_BUFFER_SIZE,
		verbose:     true,
		tieBreak:    TIE_BREAK_DROP,
	}
}

// Option configures ExtractionContainers
type Option func(*config)

// WithTempDir sets directory for spilled staging data
func WithTempDir(tempDir string) Option {
	return func(cfg *config) {
		cfg.tempDir = tempDir
	}
}

// WithMemoryLimit sets number of elements of every staging sequence kept in memory
func WithMemoryLimit(memoryLimit int) Option {
	return func(cfg *config) {
		cfg.memoryLimit = memoryLimit
	}
}

// WithBufferSize sets size of per-worker buffers
func WithBufferSize(bufferSize int) Option {
	return func(cfg *config) {
		cfg.bufferSize = bufferSize
	}
}

// WithVerbose enables progress logging
func WithVerbose(verbose bool) Option {
	return func(cfg *config) {
		cfg.verbose = verbose
	}
}

// WithViaWayTieBreak sets policy for via-way restrictions which from-way touches both via-way endpoints
func WithViaWayTieBreak(tieBreak ViaWayTieBreak) Option {
	return func(cfg *config) {
		cfg.tieBreak = tieBreak
	}
}

// WithLogger sets logger. Default one is logrus standard logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
