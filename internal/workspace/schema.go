package workspace

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schema validates the *.json documents read from a workspace's .nvimloop/
// directory (spec §6). Constraints are authored directly as CUE rather than
// round-tripped through JSON-Schema+encoding/jsonschema: the workspace's own
// config shape is simple enough that hand-written CUE is the more direct use
// of the dependency, and it is the same primitive (cue.Value.Unify +
// Validate) that encoding/jsonschema's extracted output would be checked
// with anyway.
var cueCtx = cuecontext.New()

// workspaceSchema matches workspace.json: { name, save{include,exclude,
// follow_symlinks}, persistence{shada,undo} }.
const workspaceSchema = `
name: string & !=""
save?: {
	include?: [...string]
	exclude?: [...string]
	follow_symlinks?: bool
}
persistence?: {
	shada?: bool
	undo?: bool
}
`

// tasksSchema matches tasks.json: { tasks: [Task, ...] }. depends_order and
// concurrency are validated structurally here; kind-specific payload fields
// are the provider's responsibility (spec §6 "oneOf branch per registered
// kind" — out of this core's scope since kinds are extension-provided).
const tasksSchema = `
tasks: [...{
	name: string & !=""
	type: string & !=""
	depends_on?: [...string]
	depends_order?: "sequence" | "parallel"
	concurrency?: "restart" | "refuse" | "parallel"
	save_buffers?: bool
	...
}]
`

// variablesSchema matches variables.json: { variables: {name: value} }.
const variablesSchema = `
variables?: {
	[=~"^[A-Za-z_][A-Za-z0-9_]*$"]: string
}
`

// ValidateWorkspaceJSON checks decoded workspace.json content against the
// workspace shape.
func ValidateWorkspaceJSON(doc map[string]any) error {
	return validateAgainst(workspaceSchema, doc)
}

// ValidateTasksJSON checks decoded tasks.json content against the task-list
// shape.
func ValidateTasksJSON(doc map[string]any) error {
	return validateAgainst(tasksSchema, doc)
}

// ValidateVariablesJSON checks decoded variables.json content against the
// variables-map shape.
func ValidateVariablesJSON(doc map[string]any) error {
	return validateAgainst(variablesSchema, doc)
}

func validateAgainst(schemaSrc string, doc map[string]any) error {
	schema := cueCtx.CompileString(schemaSrc)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("workspace: internal schema error: %w", err)
	}
	instance := cueCtx.Encode(doc)
	unified := schema.Unify(instance)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("workspace: validation failed: %w", err)
	}
	return nil
}
