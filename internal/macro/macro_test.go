package macro_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopforge/taskloop/internal/macro"
)

func resolveSync(t *testing.T, input string, ctx *macro.Context, table macro.Table) (string, error) {
	t.Helper()
	var val string
	var err error
	done := false
	macro.Resolve(input, ctx, table, func(v string, e error) {
		val, err, done = v, e, true
	})
	require.True(t, done, "Resolve must call k synchronously for non-suspending input")
	return val, err
}

func TestResolveNoMacrosIsIdempotent(t *testing.T) {
	got, err := resolveSync(t, "plain text, no macros here", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text, no macros here", got)
}

func TestDollarDollarIsLiteralDollar(t *testing.T) {
	got, err := resolveSync(t, "cost: $$5", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "cost: $5", got)
}

func TestWsdirBuiltin(t *testing.T) {
	ctx := &macro.Context{WorkspaceDir: "/ws"}
	got, err := resolveSync(t, "root=${wsdir}", ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "root=/ws", got)
}

func TestNestedMacro(t *testing.T) {
	ctx := &macro.Context{
		WorkspaceDir: "/w",
		Variables:    map[string]string{"ws": "wsdir"},
	}
	got, err := resolveSync(t, "${${var:ws}}", ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "/w", got)
}

func TestEscapedCommaInArgs(t *testing.T) {
	table := macro.Table{
		"echo": func(args []string, ctx *macro.Context, k macro.Callback) {
			k(args[0], nil)
		},
	}
	got, err := resolveSync(t, `${echo:a\,b}`, nil, table)
	require.NoError(t, err)
	assert.Equal(t, "a,b", got)
}

func TestUnterminatedMacroIsError(t *testing.T) {
	_, err := resolveSync(t, "${wsdir", &macro.Context{}, nil)
	require.Error(t, err)
}

func TestUnknownMacroIsError(t *testing.T) {
	_, err := resolveSync(t, "${does-not-exist}", &macro.Context{}, nil)
	require.Error(t, err)
}

func TestFileBuiltinsRespectCurrentFile(t *testing.T) {
	ctx := &macro.Context{
		CurrentFile: func() (macro.FileInfo, bool) {
			return macro.FileInfo{Path: "/repo/src/main.go", Type: "go"}, true
		},
	}
	got, err := resolveSync(t, "${filename} ${fileroot} ${fileext} ${filedir} ${filetype}", ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "main.go main go /repo/src go", got)
}

func TestFileBuiltinTypeMismatch(t *testing.T) {
	ctx := &macro.Context{
		CurrentFile: func() (macro.FileInfo, bool) {
			return macro.FileInfo{Path: "/repo/src/main.go", Type: "go"}, true
		},
	}
	_, err := resolveSync(t, "${file:python}", ctx, nil)
	require.Error(t, err)
}

func TestDateTimeUseInjectedClock(t *testing.T) {
	fixed := time.Date(2026, 7, 30, 9, 5, 0, 0, time.UTC)
	ctx := &macro.Context{Clock: func() time.Time { return fixed }}
	got, err := resolveSync(t, "${date} ${time}", ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-07-30 09:05:00", got)
}

func TestVarMissingIsError(t *testing.T) {
	ctx := &macro.Context{Variables: map[string]string{}}
	_, err := resolveSync(t, "${var:missing}", ctx, nil)
	require.Error(t, err)
}

func TestVarWithPrintfArgs(t *testing.T) {
	ctx := &macro.Context{Variables: map[string]string{"greeting": "hello %s"}}
	got, err := resolveSync(t, "${var:greeting,world}", ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

type fakePrompter struct {
	value string
	err   error
}

func (f fakePrompter) Prompt(text, def, completion string, k func(value string, err error)) {
	k(f.value, f.err)
}

func TestPromptBuiltinAsyncSuccess(t *testing.T) {
	ctx := &macro.Context{Prompter: fakePrompter{value: "earth"}}
	got, err := resolveSync(t, "echo ${prompt:Enter name,world}", ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "echo earth", got)
}

func TestPromptCancelledPropagatesError(t *testing.T) {
	ctx := &macro.Context{Prompter: fakePrompter{err: assert.AnError}}
	_, err := resolveSync(t, "${prompt:Enter name,world}", ctx, nil)
	require.Error(t, err)
}

func TestPromptWithoutPrompterIsError(t *testing.T) {
	_, err := resolveSync(t, "${prompt:x}", &macro.Context{}, nil)
	require.Error(t, err)
}

type fakePicker struct {
	pid string
}

func (f fakePicker) SelectPID(k func(pid string, err error)) {
	k(f.pid, nil)
}

func TestSelectPidBuiltin(t *testing.T) {
	ctx := &macro.Context{PIDPicker: fakePicker{pid: "1234"}}
	got, err := resolveSync(t, "pid=${select-pid}", ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "pid=1234", got)
}

func TestEnvBuiltin(t *testing.T) {
	t.Setenv("TASKLOOP_TEST_VAR", "abc")
	got, err := resolveSync(t, "${env:TASKLOOP_TEST_VAR}", &macro.Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}
