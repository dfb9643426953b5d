package catalog

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/peternagy/mongoplug/internal/bsonutil"
	"github.com/peternagy/mongoplug/internal/core"
	"github.com/peternagy/mongoplug/internal/document"
	"github.com/peternagy/mongoplug/internal/types"
)

// MultiSeparator joins multi-select values sent as a single string.
const MultiSeparator = " | "

// Args reads request arguments against the operation's declarations, falling
// back to declared defaults for missing values.
type Args struct {
	op     *Operation
	values map[string]any
	target string
}

func newArgs(op *Operation, req types.OperationRequest) *Args {
	values := req.Arguments
	if values == nil {
		values = map[string]any{}
	}
	return &Args{op: op, values: values, target: req.TargetRef}
}

func (a *Args) value(name string) any {
	if v, ok := a.values[name]; ok && v != nil {
		return v
	}
	if decl, ok := a.op.Arg(name); ok {
		return decl.Default
	}
	return nil
}

func (a *Args) invalid(format string, args ...any) error {
	return core.NewError(core.KindInvalidArgument, a.op.ID, format, args...)
}

// Target returns the entity or entity/collection reference of an argument,
// using the request target when the argument itself is absent.
func (a *Args) Target(name string) string {
	if s := strings.TrimSpace(bsonutil.ToString(a.value(name))); s != "" {
		return s
	}
	return strings.TrimSpace(a.target)
}

// Document parses a document argument.
func (a *Args) Document(name string) (bson.D, error) {
	return document.ParseValue(a.op.ID, a.value(name))
}

// String returns a text argument.
func (a *Args) String(name string) string {
	return strings.TrimSpace(bsonutil.ToString(a.value(name)))
}

// Int returns a number argument.
func (a *Args) Int(name string) (int64, error) {
	v := a.value(name)
	n, ok := bsonutil.ToInt64(v)
	if !ok {
		return 0, a.invalid("argument %s: %v is not a number", name, v)
	}
	return n, nil
}

// Bool returns a boolean argument.
func (a *Args) Bool(name string) (bool, error) {
	v := a.value(name)
	b, ok := bsonutil.ToBool(v)
	if !ok {
		return false, a.invalid("argument %s: %v is not a boolean", name, v)
	}
	return b, nil
}

// Enum returns a single selection normalised to its declared spelling.
func (a *Args) Enum(name string) (string, error) {
	v := a.String(name)
	return a.resolveEnum(name, v)
}

// MultiEnum returns a multi selection from a list or a joined string.
func (a *Args) MultiEnum(name string) ([]string, error) {
	raw := bsonutil.ToStrings(a.value(name), strings.TrimSpace(MultiSeparator))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		resolved, err := a.resolveEnum(name, v)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// resolveEnum matches a selection against declared options ignoring case.
func (a *Args) resolveEnum(name, v string) (string, error) {
	decl, _ := a.op.Arg(name)
	for _, opt := range decl.Options {
		if strings.EqualFold(opt, v) {
			return opt, nil
		}
	}
	return "", a.invalid("argument %s: unknown option %q (allowed: %s)", name, v, strings.Join(decl.Options, ", "))
}
