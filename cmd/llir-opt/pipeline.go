package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// PassName identifies one pass the pipeline can run.
type PassName string

const (
	PassForward   PassName = "forward"
	PassCamlAlloc PassName = "camlalloc"
)

// PipelineManifest is the optional `-pipeline <file>.yaml` ordered list
// of passes, read the way a build tool reads a declarative manifest
// (grounded on the pack's general pattern of YAML-configured toolchains
// rather than the teacher itself, which has no YAML surface -- SPEC_FULL's
// DOMAIN STACK enrichment).
type PipelineManifest struct {
	Passes []PipelineStep `yaml:"passes"`
}

// PipelineStep is one named pass invocation; Options is reserved for
// per-pass configuration future passes may need (e.g. an opt-level
// threshold), currently unused by forward/camlalloc, both of which are
// unconditional whole-program rewrites.
type PipelineStep struct {
	Name    PassName          `yaml:"name"`
	Options map[string]string `yaml:"options,omitempty"`
}

// DefaultPipeline runs the global forwarder followed by the allocation
// inliner, the order §4.4/§4.5 assume (forwarding first exposes more
// constant young/state pointers for the inliner's guard to fold).
var DefaultPipeline = PipelineManifest{
	Passes: []PipelineStep{
		{Name: PassForward},
		{Name: PassCamlAlloc},
	},
}

// LoadPipeline reads a pipeline manifest from path.
func LoadPipeline(path string) (PipelineManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PipelineManifest{}, err
	}
	var m PipelineManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return PipelineManifest{}, err
	}
	return m, nil
}
