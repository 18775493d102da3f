package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"bindgen/internal/config"
	"bindgen/internal/crawler"
	"bindgen/internal/extractor"
	"bindgen/internal/jsonout"
	"bindgen/internal/pattern"
	"bindgen/internal/pipeline"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:   "bindgen",
		Short: "Extract C++ declarations into a binding description document",
	}
	configPath string
	verbose    bool

	classes     []string
	enums       []string
	functions   string
	macros      string
	defines     map[string]string
	outputPath  string
	checkSchema bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Report per-pass statistics on stderr")

	addParseFlags(parseCmd.Flags())

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func addParseFlags(f *pflag.FlagSet) {
	f.StringArrayVar(&classes, "class", nil, "Class to inspect (repeatable, appended to the configured list)")
	f.StringArrayVar(&enums, "enum", nil, "Enum to inspect (repeatable, appended to the configured list)")
	f.StringVarP(&functions, "functions", "f", "", "Pattern fully matching qualified free-function names")
	f.StringVarP(&macros, "macros", "m", "", "Pattern searched in macro names")
	f.StringToStringVarP(&defines, "define", "D", nil, "Predefined macro NAME=VALUE (repeatable)")
	f.StringVarP(&outputPath, "output", "o", "", `Output file, "-" for stdout`)
	f.BoolVar(&checkSchema, "check-schema", false, "Validate the document against the bundled JSON schema before writing it")
}

// loadConfig loads the configuration and applies the command-line overrides.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Classes = append(cfg.Classes, classes...)
	cfg.Enums = append(cfg.Enums, enums...)
	if cmd.Flags().Changed("functions") {
		cfg.Functions = functions
	}
	if cmd.Flags().Changed("macros") {
		cfg.Macros = macros
	}
	if outputPath != "" {
		cfg.Output = outputPath
	}
	if len(defines) > 0 && cfg.Defines == nil {
		cfg.Defines = make(map[string]string, len(defines))
	}
	for k, v := range defines {
		cfg.Defines[k] = v
	}
	return cfg
}

func fatalPattern(err error) {
	var perr *pattern.Error
	if errors.As(err, &perr) {
		fmt.Fprint(os.Stderr, perr.Diagnostic())
		os.Exit(1)
	}
	log.Fatalf("Invalid configuration: %v", err)
}

var parseCmd = &cobra.Command{
	Use:   "parse [headers...]",
	Short: "Parse headers and write the declaration document",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		cfg.Inputs = append(cfg.Inputs, args...)
		if err := cfg.Validate(); err != nil {
			fatalPattern(err)
		}
		pc, err := cfg.Pipeline()
		if err != nil {
			fatalPattern(err)
		}

		// 1. Discover headers
		headers, err := crawler.NewCrawler().Headers(cfg.Inputs)
		if err != nil {
			log.Fatalf("Failed to collect headers: %v", err)
		}
		if len(headers) == 0 {
			log.Fatalf("Nothing to parse: %v", config.ErrNoInput)
		}

		logger := log.New(io.Discard, "", 0)
		if verbose {
			logger = log.New(os.Stderr, "bindgen: ", 0)
			log.Printf("📂 Parsing %d header(s)", len(headers))
		}

		// 2. Parse
		ext := extractor.NewExtractor(extractor.Options{Defines: cfg.Defines, Logger: logger})
		src, err := ext.ExtractFromFiles(context.Background(), headers)
		if err != nil {
			log.Fatalf("Parse failed: %v", err)
		}

		// 3. Normalize and serialize
		var buf bytes.Buffer
		res, err := pipeline.Run(src, pc, &buf, logger)
		if err != nil {
			log.Fatalf("Run failed: %v", err)
		}
		if verbose {
			report(res)
		}
		if checkSchema {
			if err := jsonout.Validate(buf.Bytes()); err != nil {
				log.Fatalf("Document does not match the schema: %v", err)
			}
		}

		// 4. Write
		if err := writeOutput(cfg.Output, buf.Bytes()); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
	},
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func report(res *pipeline.Result) {
	for _, st := range res.Stages {
		log.Printf("  %-10s visited=%d emitted=%d skipped=%d classes=%d->%d enums=%d functions=%d macros=%d",
			st.Pass, st.Stats.Visited, st.Stats.Emitted, st.Stats.Skipped,
			st.ClassesBefore, st.ClassesAfter, st.EnumCount, st.FunctionCount, st.MacroCount)
	}
	log.Printf("✅ %d classes, %d enums, %d macros",
		res.Document.Classes.Len(), res.Document.Enums.Len(), len(res.Document.Macros))
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile the configured patterns and report problems",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if _, _, err := cfg.Matchers(); err != nil {
			fatalPattern(err)
		}
		fmt.Println("✅ Configuration is valid.")
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("bindgen", version)
	},
}
