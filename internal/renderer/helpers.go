package renderer

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/spf13/cast"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Content modes of the content helper.
const (
	ModeReplace = "replace"
	ModeAppend  = "append"
	ModePrepend = "prepend"
)

var builtinHelperNames = map[string]struct{}{
	"reverse":      {},
	"ifEquals":     {},
	"languageName": {},
	"extend":       {},
	"block":        {},
	"content":      {},
}

type action struct {
	mode string
	body string
}

func (r *render) helpers() map[string]interface{} {
	return map[string]interface{}{
		"reverse":      reverseHelper,
		"ifEquals":     ifEqualsHelper,
		"languageName": languageNameHelper,
		"extend":       r.extendHelper,
		"block":        r.blockHelper,
		"content":      r.contentHelper,
	}
}

// reverseHelper reverses a list in place and renders nothing, so that a
// following each block iterates it backwards.
func reverseHelper(list interface{}) string {
	v := reflect.ValueOf(list)
	if v.Kind() != reflect.Slice {
		return ""
	}
	swap := reflect.Swapper(list)
	for i, j := 0, v.Len()-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
	return ""
}

// ifEqualsHelper renders its block when both arguments are equal. Scalars
// compare by their string form so that 1 equals "1".
func ifEqualsHelper(a, b interface{}, options *raymond.Options) string {
	if looseEqual(a, b) {
		return options.Fn()
	}
	return options.Inverse()
}

func looseEqual(a, b interface{}) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	if !isScalar(a) || !isScalar(b) {
		return false
	}
	sa, errA := cast.ToStringE(a)
	sb, errB := cast.ToStringE(b)
	return errA == nil && errB == nil && sa == sb
}

func isScalar(v interface{}) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// languageNameHelper renders the self-name of a language code ("de" ->
// "Deutsch"). Unknown codes render as given.
func languageNameHelper(code interface{}) string {
	s := cast.ToString(code)
	tag, err := language.Parse(s)
	if err != nil {
		return s
	}
	name := display.Self.Name(tag)
	if name == "" {
		return s
	}
	return name
}

// extendHelper renders the named layout partial. Content blocks inside the
// extend body fill the layout's blocks; everything else in the body is
// discarded. Hash arguments are merged over the current context.
func (r *render) extendHelper(name string, options *raymond.Options) raymond.SafeString {
	layout, ok := r.partials[name]
	if !ok {
		panic(fmt.Errorf("extend: unknown layout partial %q", name))
	}

	r.layouts = append(r.layouts, make(map[string][]action))
	defer func() { r.layouts = r.layouts[:len(r.layouts)-1] }()

	options.Fn()

	out, err := r.exec(layout.tpl, layoutContext(options.Ctx(), options.Hash()))
	if err != nil {
		panic(fmt.Errorf("extend %s: %w", name, err))
	}
	return raymond.SafeString(out)
}

func layoutContext(ctx interface{}, hash map[string]interface{}) interface{} {
	if len(hash) == 0 {
		return ctx
	}
	merged := make(map[string]interface{}, len(hash))
	if v := reflect.ValueOf(ctx); v.Kind() == reflect.Map {
		iter := v.MapRange()
		for iter.Next() {
			merged[cast.ToString(iter.Key().Interface())] = iter.Value().Interface()
		}
	}
	for k, v := range hash {
		merged[k] = v
	}
	return merged
}

// blockHelper renders a named region of a layout: its own body by default,
// modified by the content actions of every active extend, innermost layout
// first so that the page has the final word.
func (r *render) blockHelper(name string, options *raymond.Options) raymond.SafeString {
	out := options.Fn()
	for i := len(r.layouts) - 1; i >= 0; i-- {
		for _, a := range r.layouts[i][name] {
			switch a.mode {
			case ModeAppend:
				out += a.body
			case ModePrepend:
				out = a.body + out
			default:
				out = a.body
			}
		}
	}
	return raymond.SafeString(out)
}

// contentHelper records a block action for the innermost extend and renders
// nothing.
func (r *render) contentHelper(name string, options *raymond.Options) string {
	if len(r.layouts) == 0 {
		return ""
	}
	mode := strings.ToLower(options.HashStr("mode"))
	switch mode {
	case "", ModeReplace:
		mode = ModeReplace
	case ModeAppend, ModePrepend:
	default:
		panic(fmt.Errorf("content %s: unknown mode %q", name, mode))
	}

	top := r.layouts[len(r.layouts)-1]
	top[name] = append(top[name], action{mode: mode, body: options.Fn()})
	return ""
}

var partialRef = regexp.MustCompile(`\{\{~?>\s*(?:"([^"]+)"|'([^']+)'|([^\s}~()]+))`)

// partialReferences lists the static partial names referenced by source.
func partialReferences(source string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range partialRef.FindAllStringSubmatch(source, -1) {
		name := m[1] + m[2] + m[3]
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// missingPartials lists the partials referenced by source or by any known
// partial that are not registered.
func missingPartials(source string, partials map[string]*partial) []string {
	missing := make(map[string]struct{})
	check := func(src string) {
		for _, ref := range partialReferences(src) {
			if _, ok := partials[ref]; !ok {
				missing[ref] = struct{}{}
			}
		}
	}
	check(source)
	for _, p := range partials {
		check(p.source)
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
