// Package rewrite turns matched call sites into native provider calls. It
// resolves call arguments against a rule, instantiates the rule's template,
// and splices the results into the original source bytes, leaving every
// untouched region byte-identical.
package rewrite

import (
	"fmt"

	"github.com/QodeSrl/infrar-engine/internal/rules"
	"github.com/QodeSrl/infrar-engine/internal/sdk"
	"github.com/QodeSrl/infrar-engine/pkg/core"
)

// Resolve maps a call site's arguments onto the SDK parameter names,
// applying declared defaults. Literal arguments resolve to their normalized
// Python literal; any other expression passes through as verbatim source
// text. A site that cannot be fully resolved fails closed: it is returned
// as a skip and left untouched.
func Resolve(file string, site *core.CallSite, fn sdk.Function, rule *rules.Rule) (map[string]string, *core.Skip) {
	if site.CommentInArgs {
		return nil, skip(file, site, core.SkipCommentInArgs, "")
	}
	if rule.NoCapture && site.Context != core.CallStandalone {
		detail := fmt.Sprintf("result of %s is %s; no single native expression exists", site.Function, site.Context)
		return nil, skip(file, site, core.SkipCaptureUnsupported, detail)
	}

	values := make(map[string]string, len(fn.Params))
	positional := 0
	for _, arg := range site.Args {
		if arg.Starred {
			return nil, skip(file, site, core.SkipStarredArgument, arg.Text)
		}

		name := arg.Name
		if name == "" {
			if positional >= len(fn.Params) {
				detail := fmt.Sprintf("%s takes %d arguments", fn.Signature(), len(fn.Params))
				return nil, skip(file, site, core.SkipTooManyArguments, detail)
			}
			name = fn.Params[positional].Name
			positional++
		} else if _, ok := fn.Param(name); !ok {
			detail := fmt.Sprintf("%q is not a parameter of %s", name, fn.Signature())
			return nil, skip(file, site, core.SkipUnknownArgument, detail)
		}

		if _, dup := values[name]; dup {
			return nil, skip(file, site, core.SkipDuplicateArgument, name)
		}
		values[name] = argValue(arg)
	}

	for _, p := range fn.Params {
		if _, ok := values[p.Name]; ok {
			continue
		}
		if !p.HasDefault {
			return nil, skip(file, site, core.SkipMissingArgument, p.Name)
		}
		values[p.Name] = p.Default
	}

	return values, nil
}

func argValue(arg core.Argument) string {
	if arg.IsLiteral {
		return arg.Literal
	}
	return arg.Text
}

func skip(file string, site *core.CallSite, reason core.SkipReason, detail string) *core.Skip {
	return &core.Skip{
		File:     file,
		Line:     site.Line,
		Col:      site.Col,
		Function: site.Function,
		Reason:   reason,
		Detail:   detail,
	}
}
