// Package workspace loads and validates the on-disk .nvimloop/ configuration
// tree (spec §6 "Workspace layout"). It is the only package that touches
// that directory; everything else in this module consumes plain task.Task
// values and macro.Context fields, never file paths.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loopforge/taskloop/internal/task"
)

const configDir = ".nvimloop"

// Config is the decoded, validated contents of one workspace's .nvimloop/
// tree.
type Config struct {
	Name        string
	Save        SaveConfig
	Persistence PersistenceConfig
	Tasks       []task.Task
	Variables   map[string]string
}

// SaveConfig mirrors workspace.json's "save" object.
type SaveConfig struct {
	Include        []string
	Exclude        []string
	FollowSymlinks bool
}

// PersistenceConfig mirrors workspace.json's "persistence" object.
type PersistenceConfig struct {
	Shada bool
	Undo  bool
}

// Load reads and validates workspace.json, tasks.json, and the optional
// variables.json beneath root/.nvimloop.
func Load(root string) (*Config, error) {
	dir := filepath.Join(root, configDir)

	wsRaw, err := readJSONMap(filepath.Join(dir, "workspace.json"))
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	if err := ValidateWorkspaceJSON(wsRaw); err != nil {
		return nil, err
	}

	tasksRaw, err := readJSONMap(filepath.Join(dir, "tasks.json"))
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	if err := ValidateTasksJSON(tasksRaw); err != nil {
		return nil, err
	}

	cfg := &Config{}
	decodeWorkspace(wsRaw, cfg)

	tasks, err := decodeTasks(tasksRaw)
	if err != nil {
		return nil, err
	}
	cfg.Tasks = tasks

	varsPath := filepath.Join(dir, "variables.json")
	if _, err := os.Stat(varsPath); err == nil {
		varsRaw, err := readJSONMap(varsPath)
		if err != nil {
			return nil, fmt.Errorf("workspace: %w", err)
		}
		if err := ValidateVariablesJSON(varsRaw); err != nil {
			return nil, err
		}
		cfg.Variables = decodeVariables(varsRaw)
	}

	return cfg, nil
}

func readJSONMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

func decodeWorkspace(raw map[string]any, cfg *Config) {
	if name, ok := raw["name"].(string); ok {
		cfg.Name = name
	}
	if save, ok := raw["save"].(map[string]any); ok {
		cfg.Save.Include = stringSlice(save["include"])
		cfg.Save.Exclude = stringSlice(save["exclude"])
		if fs, ok := save["follow_symlinks"].(bool); ok {
			cfg.Save.FollowSymlinks = fs
		}
	}
	if persistence, ok := raw["persistence"].(map[string]any); ok {
		if shada, ok := persistence["shada"].(bool); ok {
			cfg.Persistence.Shada = shada
		}
		if undo, ok := persistence["undo"].(bool); ok {
			cfg.Persistence.Undo = undo
		}
	}
}

func decodeTasks(raw map[string]any) ([]task.Task, error) {
	list, _ := raw["tasks"].([]any)
	out := make([]task.Task, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		data, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("workspace: re-marshaling task entry: %w", err)
		}
		var t task.Task
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("workspace: decoding task entry: %w", err)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("workspace: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

func decodeVariables(raw map[string]any) map[string]string {
	vars, _ := raw["variables"].(map[string]any)
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func stringSlice(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
