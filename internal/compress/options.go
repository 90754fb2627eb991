package compress

import "github.com/puterize/glabu/internal/runner"

// Options configures compressors created with New.
type Options struct {
	Runner    runner.CommandRunner
	UPXBinary string
	UPXArgs   []string

	// ZstdLevel is one of fastest, default, better, best. Empty means best.
	ZstdLevel string
}
