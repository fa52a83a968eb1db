package macro

import "time"

// Prompter is the host capability backing the prompt builtin (spec §4.3
// "prompt"). Dismissal propagates as the literal error "Prompt cancelled".
type Prompter interface {
	Prompt(text, def, completion string, k func(value string, err error))
}

// PIDPicker is the host capability backing the select-pid builtin.
type PIDPicker interface {
	SelectPID(k func(pid string, err error))
}

// FileInfo describes the editor's notion of "the current file", consulted
// by file/filename/fileroot/filedir/fileext/filetype.
type FileInfo struct {
	Path string
	Type string
}

// Context carries everything macro expansion needs from its environment.
// Every field is a plain value or a small capability interface — deliberately
// not the concrete editor-host types, which are out of this spec's scope
// (spec §1 "treated as external collaborators").
type Context struct {
	WorkspaceDir string
	CWD          string
	HomeDir      string
	TmpDir       string

	// CurrentFile returns the editor's current file, or ok=false if none.
	CurrentFile func() (FileInfo, bool)

	// Variables holds workspace-scoped values for the var builtin
	// (spec §6 variables.json).
	Variables map[string]string

	Prompter  Prompter
	PIDPicker PIDPicker

	// Clock is injectable for deterministic tests; defaults to time.Now.
	Clock func() time.Time
}

func (c *Context) now() time.Time {
	if c == nil || c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}
