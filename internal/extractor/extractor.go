package extractor

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
	"golang.org/x/exp/maps"

	"bindgen/internal/frontend"
)

// Options configures the C++ front end.
type Options struct {
	// Defines are object-like macros set before the first header, as with -D.
	Defines map[string]string
	Logger  *log.Logger
}

// Extractor parses C++ headers into a frontend.Source.
type Extractor struct {
	opts   Options
	logger *log.Logger
}

func NewExtractor(opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Extractor{opts: opts, logger: logger}
}

// Predefined macros. Qt keywords are mapped so that class bodies using
// them still parse; access labels keep their raw spelling regardless.
var predefined = []struct{ name, value string }{
	{"__cplusplus", "201703L"},
	{"__bindgen__", "1"},
	{"NULL", "0"},
	{"signals", "public"},
	{"Q_SIGNALS", "public"},
	{"slots", ""},
	{"Q_SLOTS", ""},
	{"emit", ""},
	{"Q_EMIT", ""},
	{"Q_OBJECT", ""},
	{"Q_GADGET", ""},
	{"Q_INVOKABLE", ""},
	{"Q_PROPERTY(...)", ""},
	{"Q_ENUM(x)", ""},
	{"Q_FLAG(x)", ""},
	{"Q_DECLARE_FLAGS(Flags, Enum)", "typedef QFlags<Enum> Flags;"},
	{"Q_DECLARE_OPERATORS_FOR_FLAGS(Flags)", ""},
	{"__attribute__(...)", ""},
	{"__declspec(...)", ""},
}

type sourceFile struct {
	name string
	text string
}

// ExtractFromFiles parses the headers in order as one translation unit.
func (e *Extractor) ExtractFromFiles(ctx context.Context, paths []string) (*Source, error) {
	files := make([]sourceFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", p, err)
		}
		files = append(files, sourceFile{name: p, text: string(data)})
	}
	return e.extract(ctx, files)
}

// ExtractFromSource parses in-memory source text.
func (e *Extractor) ExtractFromSource(ctx context.Context, name, src string) (*Source, error) {
	return e.extract(ctx, []sourceFile{{name: name, text: src}})
}

func (e *Extractor) extract(ctx context.Context, files []sourceFile) (*Source, error) {
	pp := newPreprocessor(e.logger)
	for _, d := range predefined {
		pp.predefine(d.name, d.value, true)
	}
	keys := maps.Keys(e.opts.Defines)
	slices.Sort(keys)
	for _, k := range keys {
		pp.predefine(k, e.opts.Defines[k], false)
	}

	b := newBuilder(e.logger)
	for _, f := range files {
		if err := b.parseFile(ctx, pp, f, true); err != nil {
			return nil, err
		}
	}
	b.unit.Macros = pp.defs
	return &Source{unit: b.unit, pp: pp, primary: b}, nil
}

func parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())
	return parser.ParseCtx(ctx, nil, src)
}

// parseFile preprocesses and parses one file into the builder's unit.
func (b *builder) parseFile(ctx context.Context, pp *preprocessor, f sourceFile, diagnose bool) error {
	res := pp.run(f.name, f.text)
	src := []byte(res.text)
	tree, err := parse(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to parse file %s: %w", f.name, err)
	}
	b.file, b.raw, b.pp, b.src = f.name, f.text, res, src

	root := tree.RootNode()
	if diagnose && root.HasError() {
		b.reportErrors(root)
	}
	b.declarations(root, b.global)
	return nil
}

var errorQuery = []byte(`(ERROR) @error`)

func (b *builder) reportErrors(root *sitter.Node) {
	query, err := sitter.NewQuery(errorQuery, cpp.GetLanguage())
	if err != nil {
		b.logger.Printf("%s: syntax errors present", b.file)
		return
	}
	qc := sitter.NewQueryCursor()
	qc.Exec(query, root)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			b.logger.Printf("%s:%d: warning: cannot parse %q", b.file, b.line(c.Node), firstLine(b.text(c.Node)))
		}
	}
}

// line is the 1-based line of n in the raw file.
func (b *builder) line(n *sitter.Node) int {
	off, ok := b.pp.rawOffset(int(n.StartByte()))
	if !ok {
		return 0
	}
	return 1 + strings.Count(b.raw[:off], "\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Source is the result of one extraction. It implements frontend.Source.
type Source struct {
	unit    *frontend.TranslationUnit
	pp      *preprocessor
	primary *builder
}

var _ frontend.Source = (*Source)(nil)

func (s *Source) Unit() *frontend.TranslationUnit { return s.unit }

func (s *Source) Evaluator() frontend.Evaluator { return frontend.ConstEvaluator{} }

// ParseSynthetic parses src with the macros of the primary unit in effect.
// Its declarations see the primary ones but are kept apart from them, and
// parse problems are not reported.
func (s *Source) ParseSynthetic(src string) (*frontend.TranslationUnit, error) {
	b := s.primary.overlay()
	if err := b.parseFile(context.Background(), s.pp.fork(), sourceFile{name: "<synthetic>", text: src}, false); err != nil {
		return nil, err
	}
	return b.unit, nil
}
