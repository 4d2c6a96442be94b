// Package script runs user-supplied Starlark checks in a quota-bounded
// sandbox. Each script defines a `check(stmt, config)` function that
// receives the parsed statement as a nested dict and returns None, a
// violation dict, or a list of violation dicts.
package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pgquery "github.com/pganalyze/pg_query_go/v6"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/leapstack-labs/pgguard/internal/checks"
	"github.com/leapstack-labs/pgguard/internal/config"
)

// Execution quotas. A script exceeding any of them produces zero
// violations and a logged warning rather than failing the run.
const (
	maxExecutionSteps = 100_000
	maxStringSize     = 10_000
	maxCollectionSize = 1_000
)

// maxWallClock bounds each script execution in real time. Steps alone do
// not bound allocation: a loop that keeps doubling a string stays cheap
// in steps while its working set grows geometrically, so a deadline backs
// the step quota. Peak allocation inside the window is not tracked.
// Variable so tests can shorten it.
var maxWallClock = 1 * time.Second

// fileOptions enables the Starlark dialect features scripts rely on.
// While loops and recursion are allowed because the step quota bounds
// runaway execution.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// CustomCheck is a checks.Check backed by a compiled Starlark script.
type CustomCheck struct {
	name   string
	fn     starlark.Callable
	logger *slog.Logger
}

var _ checks.Check = (*CustomCheck)(nil)

// Compile executes a script's top level and extracts its check
// function. The name becomes the check's registry name.
func Compile(name, source string, logger *slog.Logger) (*CustomCheck, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	thread := newThread("compile:"+name, logger)
	stop := watchdog(thread)
	globals, err := starlark.ExecFileOptions(fileOptions, thread, name+".star", source, predeclared())
	stop()
	if err != nil {
		return nil, fmt.Errorf("compile custom check %q: %w", name, err)
	}

	fn, ok := globals["check"].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("custom check %q must define a check(stmt, config) function", name)
	}

	return &CustomCheck{name: name, fn: fn, logger: logger}, nil
}

func (c *CustomCheck) Name() string { return c.name }

// Check serializes the statement node, invokes the script's check
// function on a fresh quota-bounded thread, and decodes the result.
// Any script fault is logged and reported as zero violations.
func (c *CustomCheck) Check(node *pgquery.Node, cfg *config.Config) []checks.Violation {
	stmtVal, err := nodeToStarlark(node)
	if err != nil {
		c.logger.Warn("custom check could not serialize statement", "check", c.name, "error", err)
		return nil
	}

	thread := newThread(c.name, c.logger)
	stop := watchdog(thread)
	result, err := starlark.Call(thread, c.fn, starlark.Tuple{stmtVal, configToStarlark(cfg)}, nil)
	stop()
	if err != nil {
		c.logger.Warn("custom check failed", "check", c.name, "error", err)
		return nil
	}

	violations, err := violationsFromResult(result)
	if err != nil {
		c.logger.Warn("custom check returned invalid result", "check", c.name, "error", err)
		return nil
	}
	return violations
}

func newThread(name string, logger *slog.Logger) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Debug("custom check print", "check", name, "message", msg)
		},
	}
	thread.SetMaxExecutionSteps(maxExecutionSteps)
	return thread
}

// watchdog cancels the thread once maxWallClock elapses. The returned
// stop function disarms it; cancelling an already-finished thread is a
// no-op, so a late firing is harmless.
func watchdog(thread *starlark.Thread) func() {
	timer := time.AfterFunc(maxWallClock, func() {
		thread.Cancel("wall-clock quota exceeded")
	})
	return func() { timer.Stop() }
}

func predeclared() starlark.StringDict {
	return starlark.StringDict{"pg": pgModule()}
}

// nodeToStarlark converts a statement node to a nested Starlark dict by
// round-tripping through protojson. Field names keep their proto form
// ("alter_table_stmt", "remove_type") and enums stay numeric so they
// compare against the pg constants module.
func nodeToStarlark(node *pgquery.Node) (starlark.Value, error) {
	data, err := protojson.MarshalOptions{
		UseProtoNames:  true,
		UseEnumNumbers: true,
	}.Marshal(node)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}

	return jsonToStarlark(decoded)
}

func jsonToStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(val), nil
	case string:
		return starlark.String(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return starlark.MakeInt64(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", val.String())
		}
		return starlark.Float(f), nil
	case []any:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := jsonToStarlark(item)
			if err != nil {
				return nil, err
			}
			items[i] = sv
		}
		return starlark.NewList(items), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := jsonToStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func configToStarlark(cfg *config.Config) starlark.Value {
	disabled := make([]starlark.Value, 0, len(cfg.DisableChecks))
	for _, name := range cfg.DisableChecks {
		disabled = append(disabled, starlark.String(name))
	}

	dict := starlark.NewDict(3)
	_ = dict.SetKey(starlark.String("framework"), starlark.String(cfg.Framework))
	_ = dict.SetKey(starlark.String("postgres_version"), starlark.MakeInt(cfg.PostgresVersion))
	_ = dict.SetKey(starlark.String("disable_checks"), starlark.NewList(disabled))
	return dict
}

// violationsFromResult decodes a script's return value.
//
// Accepted shapes:
//   - None: no violations
//   - dict with operation/problem/solution string keys: one violation
//   - list of such dicts: multiple violations
func violationsFromResult(result starlark.Value) ([]checks.Violation, error) {
	switch val := result.(type) {
	case starlark.NoneType:
		return nil, nil
	case *starlark.Dict:
		v, err := violationFromDict(val)
		if err != nil {
			return nil, err
		}
		return []checks.Violation{v}, nil
	case *starlark.List:
		if val.Len() > maxCollectionSize {
			return nil, fmt.Errorf("result list has %d entries, limit is %d", val.Len(), maxCollectionSize)
		}
		violations := make([]checks.Violation, 0, val.Len())
		for i := 0; i < val.Len(); i++ {
			dict, ok := val.Index(i).(*starlark.Dict)
			if !ok {
				return nil, fmt.Errorf("result list entry %d is %s, expected dict", i, val.Index(i).Type())
			}
			v, err := violationFromDict(dict)
			if err != nil {
				return nil, err
			}
			violations = append(violations, v)
		}
		return violations, nil
	default:
		return nil, fmt.Errorf("result is %s, expected None, dict, or list of dicts", result.Type())
	}
}

func violationFromDict(dict *starlark.Dict) (checks.Violation, error) {
	operation, err := requiredString(dict, "operation")
	if err != nil {
		return checks.Violation{}, err
	}
	problem, err := requiredString(dict, "problem")
	if err != nil {
		return checks.Violation{}, err
	}
	solution, err := requiredString(dict, "solution")
	if err != nil {
		return checks.Violation{}, err
	}
	return checks.Violation{Operation: operation, Problem: problem, Solution: solution}, nil
}

func requiredString(dict *starlark.Dict, key string) (string, error) {
	v, found, err := dict.Get(starlark.String(key))
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("violation dict is missing %q", key)
	}
	s, ok := starlark.AsString(v)
	if !ok {
		return "", fmt.Errorf("violation key %q is %s, expected string", key, v.Type())
	}
	if len(s) > maxStringSize {
		return "", fmt.Errorf("violation key %q is %d bytes, limit is %d", key, len(s), maxStringSize)
	}
	return s, nil
}
