package validate

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/reqtrack/internal/record"
)

//go:embed schema.cue
var schemaSource string

// Schema checks the shape of individual records against the embedded CUE
// definitions.
type Schema struct {
	ctx  *cue.Context
	defs map[record.Family]cue.Value
}

// LoadSchema compiles the embedded schema.
func LoadSchema() (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	defs := make(map[record.Family]cue.Value, len(record.Families))
	for _, f := range record.Families {
		d := v.LookupPath(cue.ParsePath(definitionName(f)))
		if !d.Exists() {
			return nil, fmt.Errorf("schema has no %s definition", definitionName(f))
		}
		defs[f] = d
	}
	return &Schema{ctx: ctx, defs: defs}, nil
}

func definitionName(f record.Family) string {
	return "#" + f.Singular()
}

// Check unifies one raw JSON record with its family definition and returns
// the conformance problems, sorted. A nil result means the record conforms.
func (s *Schema) Check(f record.Family, raw []byte) []string {
	def, ok := s.defs[f]
	if !ok {
		return []string{fmt.Sprintf("no schema for family %q", f)}
	}
	v := s.ctx.CompileBytes(raw, cue.Filename(f.FileName()))
	if err := v.Err(); err != nil {
		return schemaMessages(err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return schemaMessages(err)
	}
	return nil
}

// schemaMessages flattens a CUE error into "path: message" lines.
func schemaMessages(err error) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		path := e.Path()
		// Paths start at the definition (#Release); report them from the
		// record root instead.
		if len(path) > 0 && strings.HasPrefix(path[0], "#") {
			path = path[1:]
		}
		if len(path) > 0 {
			msg = strings.Join(path, ".") + ": " + msg
		}
		if !seen[msg] {
			seen[msg] = true
			out = append(out, msg)
		}
	}
	sort.Strings(out)
	return out
}
