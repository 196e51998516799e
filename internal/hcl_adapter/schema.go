package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Formats  []*formatBlock   `hcl:"format,block"`
	Analyses []*analysisBlock `hcl:"analysis,block"`
	Remain   hcl.Body         `hcl:",remain"`
}

type formatBlock struct {
	Name          string              `hcl:"name,label"`
	Extension     string              `hcl:"extension"`
	Directory     bool                `hcl:"directory,optional"`
	ResourceNames map[string][]string `hcl:"resource_names,optional"`
	Description   string              `hcl:"description,optional"`
}

type analysisBlock struct {
	Name        string           `hcl:"name,label"`
	Extends     string           `hcl:"extends,optional"`
	Description string           `hcl:"description,optional"`
	Inputs      []*inputBlock    `hcl:"input,block"`
	Filesets    []*filesetBlock  `hcl:"fileset,block"`
	Fields      []*fieldBlock    `hcl:"field,block"`
	Parameters  []*paramBlock    `hcl:"parameter,block"`
	Switches    []*switchBlock   `hcl:"switch,block"`
	Pipelines   []*pipelineBlock `hcl:"pipeline,block"`
	Overrides   []*overrideBlock `hcl:"override,block"`

	file string
}

// inputBlock declares acquired data: a fileset when format is set, a field
// when type is set.
type inputBlock struct {
	Name        string `hcl:"name,label"`
	Format      string `hcl:"format,optional"`
	Type        string `hcl:"type,optional"`
	Frequency   string `hcl:"frequency,optional"`
	Optional    bool   `hcl:"optional,optional"`
	Description string `hcl:"description,optional"`
}

type filesetBlock struct {
	Name        string `hcl:"name,label"`
	Format      string `hcl:"format"`
	Frequency   string `hcl:"frequency,optional"`
	Pipeline    string `hcl:"pipeline"`
	Output      bool   `hcl:"output,optional"`
	Description string `hcl:"description,optional"`
}

type fieldBlock struct {
	Name        string `hcl:"name,label"`
	Type        string `hcl:"type"`
	Frequency   string `hcl:"frequency,optional"`
	Pipeline    string `hcl:"pipeline"`
	Output      bool   `hcl:"output,optional"`
	Description string `hcl:"description,optional"`
}

type paramBlock struct {
	Name        string         `hcl:"name,label"`
	Default     hcl.Expression `hcl:"default"`
	Description string         `hcl:"description,optional"`
}

type switchBlock struct {
	Name        string         `hcl:"name,label"`
	Default     hcl.Expression `hcl:"default"`
	Choices     hcl.Expression `hcl:"choices"`
	Description string         `hcl:"description,optional"`
}

type pipelineBlock struct {
	Name        string       `hcl:"name,label"`
	Description string       `hcl:"description,optional"`
	Citations   []string     `hcl:"citations,optional"`
	Nodes       []*nodeBlock `hcl:"node,block"`
}

// nodeBlock places an interface in a pipeline. interface and parameters may
// reference param.<name>; inputs reference data.<spec> or node.<name>.<field>.
type nodeBlock struct {
	Name         string              `hcl:"name,label"`
	Interface    hcl.Expression      `hcl:"interface"`
	Parameters   hcl.Expression      `hcl:"parameters,optional"`
	Inputs       hcl.Expression      `hcl:"inputs,optional"`
	Outputs      map[string]string   `hcl:"outputs,optional"`
	JoinSource   string              `hcl:"join_source,optional"`
	JoinFields   []string            `hcl:"join_fields,optional"`
	Requirements []*requirementBlock `hcl:"requirement,block"`
}

type requirementBlock struct {
	Name    string `hcl:"name,label"`
	Version string `hcl:"version,optional"`
	Binary  string `hcl:"binary,optional"`
}

// overrideBlock changes an inherited pipeline: modify blocks adjust existing
// nodes and node blocks add new ones.
type overrideBlock struct {
	Name   string         `hcl:"name,label"`
	Modify []*modifyBlock `hcl:"modify,block"`
	Nodes  []*nodeBlock   `hcl:"node,block"`
}

type modifyBlock struct {
	Name       string            `hcl:"name,label"`
	Parameters hcl.Expression    `hcl:"parameters,optional"`
	Unset      []string          `hcl:"unset,optional"`
	Inputs     hcl.Expression    `hcl:"inputs,optional"`
	Outputs    map[string]string `hcl:"outputs,optional"`
}
