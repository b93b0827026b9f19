package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is the top-level shape of a formula file.
type fileRoot struct {
	Formulae []*formulaBlock `hcl:"formula,block"`
}

// formulaBlock is decoded without an evaluation context, so placeholders are
// rejected here. The blocks that accept placeholders are captured as raw
// bodies and decoded in a second pass.
type formulaBlock struct {
	Name      string           `hcl:"name,label"`
	Version   string           `hcl:"version,optional"`
	Desc      string           `hcl:"desc,optional"`
	Homepage  string           `hcl:"homepage,optional"`
	License   string           `hcl:"license,optional"`
	Source    *sourceBlock     `hcl:"source,block"`
	Bottle    *bottleBlock     `hcl:"bottle,block"`
	BuildDeps []string         `hcl:"build_dependencies,optional"`
	Deps      []string         `hcl:"dependencies,optional"`
	Conflicts []*conflictBlock `hcl:"conflict,block"`
	Install   *rawBlock        `hcl:"install,block"`
	Test      *rawBlock        `hcl:"test,block"`
	Service   *rawBlock        `hcl:"service,block"`
}

type sourceBlock struct {
	URL    string `hcl:"url,optional"`
	SHA256 string `hcl:"sha256,optional"`
}

type bottleBlock struct {
	RootURL string            `hcl:"root_url,optional"`
	SHA256  map[string]string `hcl:"sha256,optional"`
}

type conflictBlock struct {
	Name    string `hcl:"name,label"`
	Because string `hcl:"because,optional"`
}

type rawBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// stepsBlock is the second-pass shape of `install` and `test`.
type stepsBlock struct {
	Steps []*stepBlock `hcl:"step,block"`
}

type stepBlock struct {
	Command string            `hcl:"command"`
	Args    []string          `hcl:"args,optional"`
	Env     map[string]string `hcl:"env,optional"`
}

// serviceBlock is the second-pass shape of `service`.
type serviceBlock struct {
	WorkingDir       string   `hcl:"working_dir,optional"`
	ProgramArguments []string `hcl:"program_arguments"`
	StdoutPath       string   `hcl:"stdout_path,optional"`
	StderrPath       string   `hcl:"stderr_path,optional"`
	RunAtLoad        bool     `hcl:"run_at_load,optional"`
	KeepAlive        bool     `hcl:"keep_alive,optional"`
	Manual           string   `hcl:"manual,optional"`
}
