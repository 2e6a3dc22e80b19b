package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/watchmedo-go/internal/config"
	"github.com/tonimelisma/watchmedo-go/internal/trick"
)

// generatedFileMode is used when --append-to-file creates a new file.
const generatedFileMode = 0o644

type generateOptions struct {
	searchRoots  string
	appendToFile string
	appendOnly   bool
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:     "generate-tricks-yaml TRICK...",
		Aliases: []string{"generate"},
		Short:   "Generate tricks-file YAML for the named tricks",
		Long: `Print a tricks file listing each named trick with its default parameters.

With --append-to-file the entries are appended to that file, preceded by
the document header when the file does not exist yet. With --append-only
and no file, only the entries are printed.

Examples:
  watchmedo generate-tricks-yaml LoggerTrick ShellCommandTrick > tricks.yaml
  watchmedo generate AutoRestartTrick --append-to-file tricks.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			roots := cc.Env.SearchRoots
			if cmd.Flags().Changed("search-roots") {
				roots = config.SplitPathList(opts.searchRoots)
			}

			return runGenerate(cc, args, roots, opts)
		},
	}

	cmd.Flags().StringVar(&opts.searchRoots, "search-roots", "",
		"search roots for trick names, separated like PATH")
	cmd.Flags().StringVar(&opts.appendToFile, "append-to-file", "",
		"append the generated YAML to this file instead of printing it")
	cmd.Flags().BoolVarP(&opts.appendOnly, "append-only", "a", false,
		"without --append-to-file, print entries only, for appending to an existing file")

	return cmd
}

func runGenerate(cc *CLIContext, names, roots []string, opts generateOptions) error {
	loader := trick.NewLoader(trick.DefaultRegistry, trick.DefaultRoot).WithRoots(roots)

	var content bytes.Buffer

	for _, name := range names {
		f, err := loader.Resolve(name)
		if err != nil {
			return err
		}

		out, err := trick.GenerateYAML(f)
		if err != nil {
			return err
		}

		content.Write(out)
	}

	header, err := trick.GenerateHeader(roots)
	if err != nil {
		return err
	}

	if opts.appendToFile == "" {
		if !opts.appendOnly {
			if _, err := cc.Stdout.Write(header); err != nil {
				return err
			}
		}

		_, err := cc.Stdout.Write(content.Bytes())

		return err
	}

	if err := appendGenerated(opts.appendToFile, header, content.Bytes()); err != nil {
		return err
	}

	cc.Statusf("Appended %d trick(s) to %s\n", len(names), opts.appendToFile)

	return nil
}

// appendGenerated appends content to path, writing header first when path
// does not exist. The file is replaced atomically.
func appendGenerated(path string, header, content []byte) error {
	existing, err := os.ReadFile(path)

	var (
		data []byte
		mode fs.FileMode = generatedFileMode
	)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = append(append(data, header...), content...)
	case err != nil:
		return fmt.Errorf("reading %s: %w", path, err)
	default:
		if info, statErr := os.Stat(path); statErr == nil {
			mode = info.Mode().Perm()
		}

		data = append(existing, content...)
	}

	if err := renameio.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
