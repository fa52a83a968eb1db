// Package macro implements the ${name[:args]} template resolver (spec §4.3).
//
// Expansion is continuation-passing throughout, per spec §9 "Coroutine
// control flow": resolve(input, ctx, cb) returns nothing; every macro
// function receives (args, ctx, k), where k is called with either a value
// or an error. This lets a macro (prompt, select-pid) suspend arbitrarily
// long waiting on user input without blocking an OS thread or coupling this
// package to any particular UI toolkit — it only needs a Prompter/PIDPicker
// implementation from the host.
package macro

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback receives a macro's or an expansion's outcome exactly once.
type Callback func(value string, err error)

// Func implements one named macro body.
type Func func(args []string, ctx *Context, k Callback)

// Table maps macro name to implementation. Resolve consults the
// caller-supplied table first, then Builtins.
type Table map[string]Func

// Resolve expands every ${...} / $$ occurrence in input, calling k exactly
// once with the fully expanded string or the first error encountered.
//
// Parsing rules (spec §4.3):
//   - Left-to-right scan; $$ is a literal $.
//   - Inside ${...}, braces nest via a depth counter; the matching outer }
//     terminates the macro. A backslash escapes the following character
//     anywhere inside the braces (so \} and \, do not count toward nesting
//     or argument splitting).
//   - The macro body is first recursively expanded in full, then split into
//     name and arguments at the first unescaped colon.
//   - Arguments are comma-separated; \, is a literal comma, \X a literal X.
//   - name is looked up in table, then Builtins; unknown name is an error.
//   - An unterminated ${...} is an error.
func Resolve(input string, ctx *Context, table Table, k Callback) {
	resolveFrom(input, 0, "", ctx, table, k)
}

func resolveFrom(input string, pos int, acc string, ctx *Context, table Table, k Callback) {
	for pos < len(input) {
		dollar := strings.IndexByte(input[pos:], '$')
		if dollar < 0 {
			k(acc+input[pos:], nil)
			return
		}
		dollar += pos
		acc += input[pos:dollar]

		if dollar+1 >= len(input) {
			k("", fmt.Errorf("macro: trailing unescaped $"))
			return
		}

		switch input[dollar+1] {
		case '$':
			acc += "$"
			pos = dollar + 2
			continue
		case '{':
			bodyStart := dollar + 2
			end, err := findMacroEnd(input, bodyStart)
			if err != nil {
				k("", err)
				return
			}
			raw := input[bodyStart:end]
			tail := end + 1

			resolveFrom(raw, 0, "", ctx, table, func(body string, err error) {
				if err != nil {
					k("", err)
					return
				}
				name, args, err := splitNameArgs(body)
				if err != nil {
					k("", err)
					return
				}
				fn, ok := lookup(table, name)
				if !ok {
					k("", fmt.Errorf("macro: unknown name %q", name))
					return
				}
				fn(args, ctx, func(val string, err error) {
					if err != nil {
						k("", err)
						return
					}
					resolveFrom(input, tail, acc+val, ctx, table, k)
				})
			})
			return
		default:
			k("", fmt.Errorf("macro: bare $ not followed by $ or {"))
			return
		}
	}
	k(acc, nil)
}

// findMacroEnd returns the index of the unescaped '}' that closes the macro
// whose body starts at bodyStart, honoring nested braces and backslash
// escapes.
func findMacroEnd(input string, bodyStart int) (int, error) {
	depth := 1
	i := bodyStart
	for i < len(input) {
		c := input[i]
		switch {
		case c == '\\':
			i += 2
			continue
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
		i++
	}
	return 0, fmt.Errorf("macro: unterminated ${...}")
}

// splitNameArgs splits a fully-expanded macro body into name and args at the
// first unescaped colon, then splits args at unescaped commas.
func splitNameArgs(body string) (string, []string, error) {
	colon := -1
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' {
			i++
			continue
		}
		if body[i] == ':' {
			colon = i
			break
		}
	}
	if colon < 0 {
		return unescape(body), nil, nil
	}
	name := unescape(body[:colon])
	argsRaw := body[colon+1:]
	return name, splitArgs(argsRaw), nil
}

func splitArgs(raw string) []string {
	if raw == "" {
		return nil
	}
	var args []string
	var cur strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\\' && i+1 < len(raw) {
			cur.WriteByte(raw[i+1])
			i++
			continue
		}
		if c == ',' {
			args = append(args, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	args = append(args, cur.String())
	return args
}

func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func lookup(table Table, name string) (Func, bool) {
	if table != nil {
		if fn, ok := table[name]; ok {
			return fn, true
		}
	}
	fn, ok := Builtins[name]
	return fn, ok
}

// argInt parses args[i] as an int, defaulting to def if the argument is
// absent or empty.
func argInt(args []string, i, def int) int {
	if i >= len(args) || args[i] == "" {
		return def
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return def
	}
	return v
}

func argOr(args []string, i int, def string) string {
	if i >= len(args) {
		return def
	}
	return args[i]
}
