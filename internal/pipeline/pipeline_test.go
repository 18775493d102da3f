package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"bindgen/internal/extractor"
	"bindgen/internal/frontend"
	"bindgen/internal/jsonout"
	"bindgen/internal/model"
	"bindgen/internal/normalize"
	"bindgen/internal/pattern"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	intT  = frontend.Builtin(frontend.BuiltinInt)
	boolT = frontend.Builtin(frontend.BuiltinBool)
)

func recordDecl(name string, members ...frontend.Decl) *frontend.RecordDecl {
	return &frontend.RecordDecl{
		Name:                             name,
		QualifiedName:                    name,
		Tag:                              frontend.TagClass,
		IsDefinition:                     true,
		HasDefaultConstructor:            true,
		HasCopyConstructorWithConstParam: true,
		SizeBits:                         8,
		AlignBits:                        8,
		Members:                          members,
	}
}

func typeInfoSpec(t frontend.QualType, value bool) *frontend.SpecializationDecl {
	return &frontend.SpecializationDecl{Record: &frontend.RecordDecl{
		Name:          TypeInfoTemplate,
		QualifiedName: TypeInfoTemplate,
		Tag:           frontend.TagStruct,
		IsDefinition:  true,
		TemplateArgs:  []frontend.TemplateArg{{Kind: frontend.TemplateArgType, Type: &t}},
		Members: []frontend.Decl{&frontend.VarDecl{
			Name:           "isDefaultConstructible",
			Type:           boolT.WithConst(),
			IsStaticMember: true,
			Init:           frontend.BoolLit(value),
		}},
	}}
}

type fixture struct {
	freeOps *frontend.RecordDecl
	widget  *frontend.RecordDecl
	source  *frontend.StaticSource
}

func newFixture() *fixture {
	f := &fixture{
		freeOps: recordDecl("FreeOps"),
		widget:  recordDecl("ui::Widget"),
	}
	f.widget.Name = "Widget"

	numeral := &frontend.EnumDecl{Name: "Numeral", QualifiedName: "Numeral", Underlying: intT}
	numeral.Constants = []*frontend.EnumConstantDecl{{Name: "First", Value: 0, Enum: numeral}, {Name: "Second", Value: 1, Enum: numeral}}

	tu := &frontend.TranslationUnit{
		Decls: []frontend.Decl{
			typeInfoSpec(f.freeOps.Type(), false),
			typeInfoSpec(f.widget.Type(), true),
			f.freeOps,
			f.widget,
			numeral,
			&frontend.FunctionDecl{Name: "mycalc_add", QualifiedName: "mycalc_add", ReturnType: intT,
				Params: []frontend.ParamDecl{{Name: "a", Type: intT}, {Name: "b", Type: intT}}},
			&frontend.FunctionDecl{Name: "helper", QualifiedName: "helper", ReturnType: intT},
			&frontend.FunctionDecl{Name: "operator+", QualifiedName: "operator+", Operator: "+", ReturnType: intT,
				Params: []frontend.ParamDecl{{Name: "self", Type: frontend.LValueRefTo(f.freeOps.Type())}, {Name: "x", Type: intT}}},
			&frontend.FunctionDecl{Name: "operator-", QualifiedName: "operator-", Operator: "-", ReturnType: intT,
				Params: []frontend.ParamDecl{{Name: "self", Type: frontend.LValueRefTo(recordDecl("Unlisted").Type())}}},
		},
		Macros: []*frontend.MacroDefinition{
			{Name: "CONSTANT_ANSWER", Tokens: []frontend.Token{{Spelling: "42"}}},
			{Name: "CONSTANT_TWICE", IsFunctionLike: true, Params: []string{"x"}, Tokens: []frontend.Token{{Spelling: "x"}, {Spelling: "*", LeadingSpace: true}, {Spelling: "2", LeadingSpace: true}}},
			{Name: "OTHER", Tokens: []frontend.Token{{Spelling: "1"}}},
		},
	}

	f.source = &frontend.StaticSource{
		TU: tu,
		Parse: func(src string) (*frontend.TranslationUnit, error) {
			if !strings.Contains(src, "bg_macro_val_CONSTANT_ANSWER") {
				return &frontend.TranslationUnit{}, nil
			}
			return &frontend.TranslationUnit{Decls: []frontend.Decl{
				&frontend.VarDecl{Name: "bg_macro_val_CONSTANT_ANSWER", Type: intT, Init: frontend.IntLit(42, intT)},
			}}, nil
		},
	}
	return f
}

func testConfig(classes ...string) Config {
	opts := normalize.DefaultOptions()
	no := false
	opts.TypeInfo = map[string]normalize.TypeInfo{"ui::Widget": {IsDefaultConstructible: &no}}
	return Config{
		Classes:   classes,
		Enums:     []string{"Numeral"},
		Functions: pattern.MustCompile("mycalc_.*"),
		Macros:    pattern.MustCompile("CONSTANT_"),
		Normalize: opts,
	}
}

func TestRun(t *testing.T) {
	f := newFixture()
	var out bytes.Buffer

	res, err := Run(f.source, testConfig("FreeOps", "Widget"), &out, nil)
	require.NoError(t, err)

	var names []string
	for _, s := range res.Stages {
		names = append(names, s.Pass)
		assert.NoError(t, s.Err)
	}
	assert.Equal(t, []string{"typeinfo", "macros", "basic", "operators", "evaluate"}, names)

	doc := res.Document
	assert.Equal(t, []string{"FreeOps", "Widget"}, doc.Classes.Keys())
	assert.Equal(t, []string{"Numeral"}, doc.Enums.Keys())

	t.Run("type info from source, configuration wins", func(t *testing.T) {
		freeOps, _ := doc.Classes.Get("FreeOps")
		assert.False(t, freeOps.HasDefaultConstructor)
		widget, _ := doc.Classes.Get("Widget")
		assert.Equal(t, "ui::Widget", widget.Name)
		assert.False(t, widget.HasDefaultConstructor)
	})

	t.Run("functions use a full match", func(t *testing.T) {
		require.Len(t, doc.Functions, 1)
		assert.Equal(t, "mycalc_add", doc.Functions[0].Name)
		assert.Equal(t, "::", doc.Functions[0].ClassName)
	})

	t.Run("operators attach to registered classes only", func(t *testing.T) {
		freeOps, _ := doc.Classes.Get("FreeOps")
		require.Len(t, freeOps.Methods, 1)
		op := freeOps.Methods[0]
		assert.Equal(t, model.MethodOperator, op.Kind)
		assert.Equal(t, "FreeOps", op.ClassName)
		require.Len(t, op.Arguments, 1)

		stage := res.Stages[3]
		assert.Equal(t, Stats{Visited: 2, Emitted: 1, Skipped: 1}, stage.Stats)
	})

	t.Run("macros searched and evaluated", func(t *testing.T) {
		require.Len(t, doc.Macros, 2)
		answer := doc.FindMacro("CONSTANT_ANSWER")
		require.NotNil(t, answer)
		require.True(t, answer.HasEvaluation())
		assert.True(t, model.IntLiteral(42).Equal(answer.Evaluated))

		twice := doc.FindMacro("CONSTANT_TWICE")
		require.NotNil(t, twice)
		assert.Equal(t, "x * 2", twice.Value)
		assert.False(t, twice.HasEvaluation())
		assert.Nil(t, doc.FindMacro("OTHER"))
	})

	t.Run("serialized once and schema valid", func(t *testing.T) {
		assert.Equal(t, 1, strings.Count(out.String(), `"enums"`))
		assert.True(t, strings.HasSuffix(out.String(), "}\n"))
		assert.NoError(t, jsonout.Validate(out.Bytes()))
	})
}

func TestRunMissingClass(t *testing.T) {
	f := newFixture()
	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)

	res, err := Run(f.source, testConfig("Missing", "FreeOps"), &bytes.Buffer{}, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"FreeOps"}, res.Document.Classes.Keys())
	assert.Contains(t, logs.String(), "class Missing")
	assert.Contains(t, logs.String(), frontend.ErrNoDefinition.Error())
}

func TestRunEmptyPatterns(t *testing.T) {
	f := newFixture()
	cfg := testConfig("FreeOps")
	cfg.Functions = pattern.MustCompile("")
	cfg.Macros = nil

	res, err := Run(f.source, cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Document.Functions)
	assert.Empty(t, res.Document.Macros)
}

func TestRunSyntheticParseFailure(t *testing.T) {
	f := newFixture()
	f.source.Parse = func(string) (*frontend.TranslationUnit, error) {
		return nil, errors.New("boom")
	}

	var out bytes.Buffer
	res, err := Run(f.source, testConfig("FreeOps"), &out, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluate pass failed")
	assert.Equal(t, 0, out.Len())
	assert.Len(t, res.Stages, 5)
}

type fakePass struct {
	name string
	fn   func(s *State) (Stats, error)
}

func (f fakePass) Name() string                { return f.name }
func (f fakePass) Run(s *State) (Stats, error) { return f.fn(s) }

func TestChainStopsAtFailure(t *testing.T) {
	s := NewState(&frontend.StaticSource{}, Config{}, nil)

	grow := fakePass{name: "grow", fn: func(s *State) (Stats, error) {
		s.Doc.Classes.Set("A", model.NewClass("A"))
		return Stats{Visited: 1, Emitted: 1}, nil
	}}
	fail := fakePass{name: "fail", fn: func(*State) (Stats, error) { return Stats{}, errors.New("nope") }}
	never := fakePass{name: "never", fn: func(*State) (Stats, error) {
		t.Fatal("pass after a failure must not run")
		return Stats{}, nil
	}}

	results := NewChain(grow, fail, never).Run(s)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].ClassesBefore)
	assert.Equal(t, 1, results[0].ClassesAfter)
	assert.EqualError(t, results[1].Err, "nope")
}

const settingsHeader = `
#define SETTINGS_NEG -123LL
#define SETTINGS_BIG 9223372036854775808ULL

template <typename T> class QFlags {};

namespace app {

enum Option { None = 0, Bold = 1, Italic = 2 };
typedef QFlags<Option> Options;

struct Settings {
    int a = 0;
    int b = 1;
    unsigned c = 0u;
    bool d = false;
    double ratio = 0.5;
    int *p = 0;
    static const int z = 0;
    void setLabel(const QString &label = QString("Okay"));
};

} // namespace app
`

func TestRunExtractedHeader(t *testing.T) {
	src, err := extractor.NewExtractor(extractor.Options{}).ExtractFromSource(context.Background(), "settings.hpp", settingsHeader)
	require.NoError(t, err)

	cfg := Config{
		Classes:   []string{"Settings"},
		Enums:     []string{"Options"},
		Macros:    pattern.MustCompile("SETTINGS_"),
		Normalize: normalize.DefaultOptions(),
	}
	var out bytes.Buffer
	res, err := Run(src, cfg, &out, nil)
	require.NoError(t, err)
	assert.NoError(t, jsonout.Validate(out.Bytes()))

	doc := res.Document
	settings, ok := doc.Classes.Get("Settings")
	require.True(t, ok)
	assert.Equal(t, "app::Settings", settings.Name)

	fields := make(map[string]model.Field)
	for _, f := range settings.Fields {
		fields[f.Name] = f
	}

	t.Run("field defaults", func(t *testing.T) {
		tests := []struct {
			name   string
			static bool
			want   model.Literal
		}{
			{"a", false, model.IntLiteral(0)},
			{"b", false, model.IntLiteral(1)},
			{"c", false, model.UIntLiteral(0)},
			{"d", false, model.BoolLiteral(false)},
			{"ratio", false, model.DoubleLiteral(0.5)},
			{"z", true, model.IntLiteral(0)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f, ok := fields[tt.name]
				require.True(t, ok)
				assert.Equal(t, tt.static, f.IsStatic)
				assert.True(t, f.HasDefault)
				assert.True(t, tt.want.Equal(f.Value), "got %v", f.Value)
			})
		}
	})

	t.Run("pointer field initialized to zero", func(t *testing.T) {
		p, ok := fields["p"]
		require.True(t, ok)
		assert.True(t, p.HasDefault)
		assert.False(t, p.Value.HasValue())
	})

	t.Run("string class default", func(t *testing.T) {
		require.Len(t, settings.Methods, 1)
		m := settings.Methods[0]
		assert.Equal(t, "setLabel", m.Name)
		require.NotNil(t, m.FirstDefaultArgument)
		assert.Equal(t, 0, *m.FirstDefaultArgument)
		require.Len(t, m.Arguments, 1)
		assert.True(t, model.StringLiteral("Okay").Equal(m.Arguments[0].Value))
	})

	t.Run("flags enum", func(t *testing.T) {
		e, ok := doc.Enums.Get("Options")
		require.True(t, ok)
		assert.True(t, e.IsFlags)
		assert.Equal(t, []string{"None", "Bold", "Italic"}, e.Values.Keys())
	})

	t.Run("macro values", func(t *testing.T) {
		neg := doc.FindMacro("SETTINGS_NEG")
		require.NotNil(t, neg)
		require.True(t, neg.HasEvaluation())
		assert.True(t, model.IntLiteral(-123).Equal(neg.Evaluated))

		big := doc.FindMacro("SETTINGS_BIG")
		require.NotNil(t, big)
		require.True(t, big.HasEvaluation())
		assert.True(t, model.UIntLiteral(1<<63).Equal(big.Evaluated))
	})
}
