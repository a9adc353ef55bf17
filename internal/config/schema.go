package config

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource []byte

// ErrSchema is wrapped by every schema validation failure.
var ErrSchema = errors.New("config does not match schema")

// checkSchema validates src against #Bench and returns the unified value.
// The file format is chosen by the extension of filename.
func checkSchema(filename string, src []byte) (cue.Value, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compiling embedded schema: %w", err)
	}
	bench := schema.LookupPath(cue.ParsePath("#Bench"))

	var v cue.Value
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		f, err := cueyaml.Extract(filename, src)
		if err != nil {
			return cue.Value{}, fmt.Errorf("parsing %s: %s", filename, cueerrors.Details(err, nil))
		}
		v = ctx.BuildFile(f)
	case ".cue":
		v = ctx.CompileBytes(src, cue.Filename(filename))
	default:
		return cue.Value{}, fmt.Errorf("unsupported config format %q (want .yaml, .yml or .cue)", filepath.Ext(filename))
	}
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("parsing %s: %s", filename, cueerrors.Details(err, nil))
	}

	unified := bench.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, fmt.Errorf("%w: %s", ErrSchema, strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return unified, nil
}
