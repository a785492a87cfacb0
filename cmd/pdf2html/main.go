// pdf2html converts PDF files into single self-contained HTML documents.
//
// Usage:
//
//	pdf2html [options] <file.pdf> [more.pdf ...]
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pdfhtml "github.com/porticus-lab/go-pdf-html"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`pdf2html - convert PDF files to self-contained HTML

Usage:
  pdf2html [options] <file.pdf> [more.pdf ...]

Options:
  -o <file>    Output file (only valid with a single input;
               default: <input>.html next to the input)
  -scale <f>   Rendering scale factor (default: 2.0)
  -v           Verbose progress output

Examples:
  pdf2html report.pdf
  pdf2html -o out.html -scale 3 report.pdf
  pdf2html a.pdf b.pdf c.pdf
`)
}

func run(args []string) error {
	var (
		outputFile string
		scale      = 2.0
		verbose    bool
		inputs     []string
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o":
			i++
			if i >= len(args) {
				return fmt.Errorf("-o requires an argument")
			}
			outputFile = args[i]
		case "-scale":
			i++
			if i >= len(args) {
				return fmt.Errorf("-scale requires an argument")
			}
			f, err := strconv.ParseFloat(args[i], 64)
			if err != nil || f <= 0 {
				return fmt.Errorf("invalid scale: %s", args[i])
			}
			scale = f
		case "-v":
			verbose = true
		case "help", "-h", "--help":
			printUsage()
			return nil
		default:
			if strings.HasPrefix(args[i], "-") {
				return fmt.Errorf("unknown option: %s", args[i])
			}
			inputs = append(inputs, args[i])
		}
	}

	if len(inputs) == 0 {
		printUsage()
		return fmt.Errorf("no input file specified")
	}
	if outputFile != "" && len(inputs) > 1 {
		return fmt.Errorf("-o cannot be combined with multiple inputs")
	}

	opts := []pdfhtml.Option{pdfhtml.WithScale(scale)}
	if verbose {
		opts = append(opts, pdfhtml.WithLogger(log.New(os.Stderr, "pdf2html: ", 0)))
	}

	conv, err := pdfhtml.NewConverter(opts...)
	if err != nil {
		return err
	}

	for _, input := range inputs {
		out := outputFile
		if out == "" {
			out = strings.TrimSuffix(input, filepath.Ext(input)) + ".html"
		}

		res, err := conv.ConvertFile(context.Background(), input)
		if err != nil {
			return fmt.Errorf("converting %s: %w", input, err)
		}
		if err := res.WriteToFile(out, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Printf("%s -> %s (%d bytes)\n", input, out, res.Len())
	}
	return nil
}
