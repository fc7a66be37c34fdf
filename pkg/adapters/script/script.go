// Package script loads instruction streams from YAML files and seeds them
// into a database where sessions can read them.
//
// A script names the root session and lists the instructions of every
// session prefix:
//
//	root: main
//	threads:
//	  main:
//	    - PUSH: counter        # byte string argument
//	    - GET
//	    - WAIT_FUTURE
//	    - {op: PUSH, int: 3}
//	    - {op: PUSH, string: "unicode"}
//	    - {op: PUSH, hex: "ff00"}
//	    - {op: PUSH, nil: true}
package script

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/tester"
	"github.com/aretw0/stacktester/pkg/tuple"
)

// DefaultRoot is the root session prefix used when a script names none.
const DefaultRoot = "root"

// ErrInvalidScript is returned for scripts that cannot be turned into instructions.
var ErrInvalidScript = errors.New("invalid script")

// Script maps session prefixes to their instruction streams.
type Script struct {
	Root    string
	Threads map[string][]tester.Instruction
}

// Prefixes returns the session prefixes in sorted order.
func (s *Script) Prefixes() []string {
	out := make([]string, 0, len(s.Threads))
	for p := range s.Threads {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type file struct {
	Root    string           `yaml:"root"`
	Threads map[string][]any `yaml:"threads"`
}

// entry is the long form of an instruction. At most one argument field is set.
type entry struct {
	Op     string  `mapstructure:"op"`
	Bytes  *string `mapstructure:"bytes"`
	String *string `mapstructure:"string"`
	Hex    *string `mapstructure:"hex"`
	Int    *int64  `mapstructure:"int"`
	Nil    bool    `mapstructure:"nil"`
}

// Load reads a script file. JSON files are accepted as well.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a script document.
func Parse(data []byte) (*Script, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	s := &Script{Root: f.Root, Threads: make(map[string][]tester.Instruction, len(f.Threads))}
	if s.Root == "" {
		s.Root = DefaultRoot
	}
	for prefix, raw := range f.Threads {
		insts := make([]tester.Instruction, 0, len(raw))
		for i, item := range raw {
			inst, err := decode(item)
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidScript, prefix, i, err)
			}
			insts = append(insts, inst)
		}
		s.Threads[prefix] = insts
	}
	if _, ok := s.Threads[s.Root]; !ok {
		return nil, fmt.Errorf("%w: root session %q has no instructions", ErrInvalidScript, s.Root)
	}
	return s, nil
}

func decode(item any) (tester.Instruction, error) {
	switch v := item.(type) {
	case string:
		return tester.Op(strings.ToUpper(v)), nil
	case map[string]any:
		if _, ok := v["op"]; ok {
			return decodeEntry(v)
		}
		if len(v) != 1 {
			return tester.Instruction{}, fmt.Errorf("short form needs exactly one key, got %d", len(v))
		}
		for op, arg := range v {
			a, err := shortArg(arg)
			if err != nil {
				return tester.Instruction{}, err
			}
			return tester.Instruction{Op: strings.ToUpper(op), Arg: a, HasArg: true}, nil
		}
	}
	return tester.Instruction{}, fmt.Errorf("unsupported instruction %T", item)
}

func shortArg(arg any) (any, error) {
	switch a := arg.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(a), nil
	case int:
		return int64(a), nil
	}
	return nil, fmt.Errorf("unsupported argument %T", arg)
}

func decodeEntry(m map[string]any) (tester.Instruction, error) {
	var e entry
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &e,
		ErrorUnused: true,
	})
	if err != nil {
		return tester.Instruction{}, err
	}
	if err := dec.Decode(m); err != nil {
		return tester.Instruction{}, err
	}
	if e.Op == "" {
		return tester.Instruction{}, errors.New("missing op")
	}

	inst := tester.Instruction{Op: strings.ToUpper(e.Op)}
	set := 0
	if e.Bytes != nil {
		inst.Arg, set = []byte(*e.Bytes), set+1
	}
	if e.String != nil {
		inst.Arg, set = *e.String, set+1
	}
	if e.Hex != nil {
		b, err := hex.DecodeString(*e.Hex)
		if err != nil {
			return tester.Instruction{}, fmt.Errorf("bad hex argument: %w", err)
		}
		inst.Arg, set = b, set+1
	}
	if e.Int != nil {
		inst.Arg, set = *e.Int, set+1
	}
	if e.Nil {
		inst.Arg, set = nil, set+1
	}
	if set > 1 {
		return tester.Instruction{}, fmt.Errorf("%s has %d arguments", inst.Op, set)
	}
	inst.HasArg = set == 1
	return inst, nil
}

// Seed writes every instruction stream under (prefix, index), one transaction per session.
// A stream already stored under the same prefix is replaced.
func Seed(ctx context.Context, db ports.Database, s *Script) error {
	for _, prefix := range s.Prefixes() {
		tr, err := db.CreateTransaction()
		if err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		begin, end := tuple.Tuple{[]byte(prefix)}.Range()
		if err := tr.ClearRange(begin, end); err != nil {
			return fmt.Errorf("failed to clear %s: %w", prefix, err)
		}
		for i, inst := range s.Threads[prefix] {
			if err := tr.Set(tester.Key([]byte(prefix), i), inst.Encode()); err != nil {
				return fmt.Errorf("failed to seed %s[%d]: %w", prefix, i, err)
			}
		}
		if _, err := tr.Commit().Get(ctx); err != nil {
			return fmt.Errorf("failed to seed %s: %w", prefix, err)
		}
	}
	return nil
}
