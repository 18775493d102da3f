package normalize

import (
	"fmt"
	"strings"

	"bindgen/internal/frontend"
	"bindgen/internal/model"
)

// MacroValuePrefix names the variables of the synthetic evaluation unit.
const MacroValuePrefix = "bg_macro_val_"

// Macros collects the definitions accepted by match. Built-ins are skipped
// and GNU-style variadic macros are discarded. A redefinition replaces the
// earlier record in place.
func (n *Normalizer) Macros(defs []*frontend.MacroDefinition, match func(string) bool) []model.Macro {
	var out []model.Macro
	index := make(map[string]int)
	for _, def := range defs {
		if def.IsBuiltin || !match(def.Name) {
			continue
		}
		m, ok := n.macro(def)
		if !ok {
			n.logger.Printf("macro %s: GNU varargs are not supported, discarded", def.Name)
			continue
		}
		if i, seen := index[m.Name]; seen {
			out[i] = m
			continue
		}
		index[m.Name] = len(out)
		out = append(out, m)
	}
	return out
}

func (n *Normalizer) macro(def *frontend.MacroDefinition) (model.Macro, bool) {
	m := model.Macro{
		Name:       def.Name,
		IsFunction: def.IsFunctionLike,
		Arguments:  []string{},
	}

	for i, p := range def.Params {
		if i == len(def.Params)-1 && p == "__VA_ARGS__" {
			m.IsVarArg = true
			break
		}
		m.Arguments = append(m.Arguments, p)
	}

	var sb strings.Builder
	for i, tok := range def.Tokens {
		if i > 0 && tok.LeadingSpace {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.Spelling)
	}
	m.Value = sb.String()

	if def.IsGNUVarargs {
		return model.Macro{}, false
	}
	return m, true
}

// MacroEvaluationSource renders one auto variable per object-like macro.
func MacroEvaluationSource(macros []model.Macro) string {
	var sb strings.Builder
	for _, m := range macros {
		if m.IsFunction {
			continue
		}
		fmt.Fprintf(&sb, "auto %s%s = (%s);\n", MacroValuePrefix, m.Name, m.Name)
	}
	return sb.String()
}

// EvaluateMacros parses the synthetic unit through src and stores the type
// and value of every object-like macro that folds to a constant. Macros
// that do not fold keep neither.
func (n *Normalizer) EvaluateMacros(src frontend.Source, macros []model.Macro) error {
	code := MacroEvaluationSource(macros)
	if code == "" {
		return nil
	}

	tu, err := src.ParseSynthetic(code)
	if err != nil {
		return fmt.Errorf("failed to parse macro evaluation unit: %w", err)
	}

	for _, v := range tu.Vars() {
		name, ok := strings.CutPrefix(v.Name, MacroValuePrefix)
		if !ok {
			continue
		}
		for i := range macros {
			m := &macros[i]
			if m.Name != name || m.IsFunction {
				continue
			}
			value := n.Value(v.Type, v.Init)
			if !value.HasValue() {
				n.logger.Printf("macro %s: not a constant expression", name)
				break
			}
			t := n.Type(v.Type)
			m.Type = &t
			m.Evaluated = value
			break
		}
	}
	return nil
}
