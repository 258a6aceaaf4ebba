package guard

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/rotisserie/eris"
)

//go:embed brief.cue
var briefSchema string

// Schema validates decoded drafts against the #Brief definition.
type Schema struct {
	mu     sync.Mutex // cue.Context is not safe for concurrent use
	ctx    *cue.Context
	def    cue.Value
	source string
}

// NewSchema compiles the embedded brief contract.
func NewSchema() (*Schema, error) {
	return compileSchema(briefSchema)
}

func compileSchema(src string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("brief.cue"))
	if err := v.Err(); err != nil {
		return nil, eris.Wrap(err, "guard: compile schema")
	}
	def := v.LookupPath(cue.ParsePath("#Brief"))
	if err := def.Err(); err != nil {
		return nil, eris.Wrap(err, "guard: lookup #Brief")
	}
	return &Schema{ctx: ctx, def: def, source: src}, nil
}

// Source returns the CUE text of the contract.
func (s *Schema) Source() string { return s.source }

// Validate returns one message per violation, sorted, or nil when doc
// satisfies the contract.
func (s *Schema) Validate(doc any) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return []string{err.Error()}
	}
	err := s.def.Unify(v).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		path := strings.TrimPrefix(strings.Join(e.Path(), "."), "#Brief.")
		msg := fmt.Sprintf(format, args...)
		if path != "" {
			msg = path + ": " + msg
		}
		if _, dup := seen[msg]; dup {
			continue
		}
		seen[msg] = struct{}{}
		out = append(out, msg)
	}
	if len(out) == 0 {
		out = []string{err.Error()}
	}
	sort.Strings(out)
	return out
}
