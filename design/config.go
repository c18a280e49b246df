package design

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/synthflow/lperr"
)

// Config is the YAML-loadable configuration for one compilation run,
// mirroring core.YAMLRoot's struct-tag style: a flat, mostly-optional
// document a user hand-edits alongside their design's Go source.
type Config struct {
	// Backend is a diagnostic label for the target synchronous backend
	// (e.g. "asic"); the core itself is backend-agnostic beyond assuming
	// a single synchronous clock domain.
	Backend string `yaml:"backend"`

	// ClockPeriodPS is the target clock period, in picoseconds, that
	// PipelineFrequencyPass paces register insertion to.
	ClockPeriodPS float64 `yaml:"clock_period_ps"`

	// MaxRefinePasses bounds refine.Engine's fixed-point loop per
	// module; 0 means the package default of 100, per §4.2.
	MaxRefinePasses int `yaml:"max_refine_passes"`

	// EnablePipelining gates the §4.8 passes; a caller inspecting a
	// freshly elaborated, unpipelined design sets this false.
	EnablePipelining bool `yaml:"enable_pipelining"`

	// EnableChecks gates the §4.9 post-condition passes.
	EnableChecks bool `yaml:"enable_checks"`

	// WorkDir is where diagnostic artifacts (graphviz, connection
	// listings, stats.csv) are written.
	WorkDir string `yaml:"work_dir"`

	// Debug dumps a graphviz snapshot between every pass, via
	// pass.HookPosPassStart/End.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the configuration a Builder starts from absent an
// explicit LoadConfig call.
func DefaultConfig() Config {
	return Config{
		Backend:          "asic",
		ClockPeriodPS:    1000,
		MaxRefinePasses:  100,
		EnablePipelining: true,
		EnableChecks:     true,
		WorkDir:          ".",
	}
}

// LoadConfig reads and parses a YAML config file, returning
// DefaultConfig() with every field present in the file overridden.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, lperr.External(err, "read config file "+path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, lperr.External(err, "parse config file "+path)
	}
	return cfg, nil
}
