package macro

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Builtins implements the table from spec §4.3. Each entry is side-effect
// free except prompt/select-pid, which suspend on user input.
var Builtins = Table{
	"wsdir":  func(_ []string, ctx *Context, k Callback) { k(ctx.WorkspaceDir, nil) },
	"cwd":    func(_ []string, ctx *Context, k Callback) { k(ctx.CWD, nil) },
	"home":   func(_ []string, ctx *Context, k Callback) { k(ctx.HomeDir, nil) },
	"tmpdir": func(_ []string, ctx *Context, k Callback) { k(ctx.TmpDir, nil) },

	"file":     func(args []string, ctx *Context, k Callback) { fileMacro(args, ctx, k, wholePath) },
	"filename": func(args []string, ctx *Context, k Callback) { fileMacro(args, ctx, k, baseName) },
	"fileroot": func(args []string, ctx *Context, k Callback) { fileMacro(args, ctx, k, rootName) },

	"filedir": func(_ []string, ctx *Context, k Callback) {
		f, ok := currentFile(ctx)
		if !ok {
			k("", fmt.Errorf("macro: no current file"))
			return
		}
		k(filepath.Dir(f.Path), nil)
	},
	"fileext": func(_ []string, ctx *Context, k Callback) {
		f, ok := currentFile(ctx)
		if !ok {
			k("", fmt.Errorf("macro: no current file"))
			return
		}
		k(strings.TrimPrefix(filepath.Ext(f.Path), "."), nil)
	},
	"filetype": func(_ []string, ctx *Context, k Callback) {
		f, ok := currentFile(ctx)
		if !ok {
			k("", fmt.Errorf("macro: no current file"))
			return
		}
		k(f.Type, nil)
	},

	"date":      func(_ []string, ctx *Context, k Callback) { k(ctx.now().Format("2006-01-02"), nil) },
	"time":      func(_ []string, ctx *Context, k Callback) { k(ctx.now().Format("15:04:05"), nil) },
	"timestamp": func(_ []string, ctx *Context, k Callback) { k(ctx.now().Format("2006-01-02T15:04:05Z07:00"), nil) },

	"env": func(args []string, _ *Context, k Callback) {
		if len(args) < 1 || args[0] == "" {
			k("", fmt.Errorf("macro: env requires a variable name"))
			return
		}
		k(os.Getenv(args[0]), nil)
	},

	"var": func(args []string, ctx *Context, k Callback) {
		if len(args) < 1 || args[0] == "" {
			k("", fmt.Errorf("macro: var requires a variable name"))
			return
		}
		val, ok := ctx.Variables[args[0]]
		if !ok {
			k("", fmt.Errorf("macro: unknown variable %q", args[0]))
			return
		}
		if len(args) > 1 {
			extra := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				extra = append(extra, a)
			}
			k(fmt.Sprintf(val, extra...), nil)
			return
		}
		k(val, nil)
	},

	"prompt": func(args []string, ctx *Context, k Callback) {
		if ctx.Prompter == nil {
			k("", fmt.Errorf("macro: no prompt capability available"))
			return
		}
		text := argOr(args, 0, "")
		def := argOr(args, 1, "")
		completion := argOr(args, 2, "")
		ctx.Prompter.Prompt(text, def, completion, k)
	},

	"select-pid": func(_ []string, ctx *Context, k Callback) {
		if ctx.PIDPicker == nil {
			k("", fmt.Errorf("macro: no process picker available"))
			return
		}
		ctx.PIDPicker.SelectPID(k)
	},
}

type fileView int

const (
	wholePath fileView = iota
	baseName
	rootName
)

func currentFile(ctx *Context) (FileInfo, bool) {
	if ctx == nil || ctx.CurrentFile == nil {
		return FileInfo{}, false
	}
	return ctx.CurrentFile()
}

// fileMacro implements file/filename/fileroot, all of which accept an
// optional filetype argument and error if the current file's type mismatches
// (spec §4.3 table).
func fileMacro(args []string, ctx *Context, k Callback, view fileView) {
	f, ok := currentFile(ctx)
	if !ok {
		k("", fmt.Errorf("macro: no current file"))
		return
	}
	if want := argOr(args, 0, ""); want != "" && want != f.Type {
		k("", fmt.Errorf("macro: current file type %q does not match requested %q", f.Type, want))
		return
	}
	switch view {
	case baseName:
		k(filepath.Base(f.Path), nil)
	case rootName:
		base := filepath.Base(f.Path)
		k(strings.TrimSuffix(base, filepath.Ext(base)), nil)
	default:
		k(f.Path, nil)
	}
}
