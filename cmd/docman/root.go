// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docman/internal/citation"
	"github.com/pdiddy/docman/internal/logging"
	"github.com/pdiddy/docman/internal/lookup"
	"github.com/pdiddy/docman/internal/report"
	"github.com/pdiddy/docman/pkg/types"
)

// newRootCmd builds the docman command with its own viper instance so each
// invocation starts from a clean configuration.
func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "docman -c <citations-file> [-o <output-file>] <input-file|->",
		Short: "Append a bibliography to a document that cites [id] markers",
		Long: `docman copies a plain-text document to the output and appends a
"References:" section with one line for every distinct [id] cited in it.

Entries come from a citation database (JSON, or YAML with a .yaml/.yml
extension). Articles are formatted from the database; books and webpages are
completed from the lookup service by ISBN or URL.

Use "-" as the input file to read standard input. Output goes to standard
output unless -o names a file.`,
		Version:       version,
		Args:          checkArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logging.Init(cmd.ErrOrStderr(), verbose, logging.FormatText)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			citationsPath, _ := cmd.Flags().GetString("citations")
			outputPath, _ := cmd.Flags().GetString("output")
			return run(cmd, cfg, citationsPath, args[0], outputPath)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	cmd.Flags().StringP("citations", "c", "", "citation database (JSON or YAML)")
	cmd.Flags().StringP("output", "o", "", "write the report to this file instead of standard output")
	cmd.Flags().String("config", "", "config file (default: ./docman.yaml or ~/.config/docman/docman.yaml)")
	cmd.Flags().String("lookup-url", "", "base URL of the lookup service (default "+types.DefaultBaseURL+")")
	cmd.Flags().Duration("timeout", 0, "lookup request timeout (default: none)")
	cmd.Flags().Bool("atomic", false, "write the report only if every stage succeeds")
	cmd.Flags().Bool("verbose", false, "log debug diagnostics to stderr")

	bindFlags(v, cmd)
	return cmd
}

func checkArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expected one input file or \"-\", got %d arguments", errUsage, len(args))
	}
	if c, _ := cmd.Flags().GetString("citations"); c == "" {
		return fmt.Errorf("%w: -c <citations-file> is required", errUsage)
	}
	return nil
}

// run loads the database, then streams the document and its bibliography to
// the destination. In atomic mode the report is assembled in memory and
// written only after every stage succeeded.
func run(cmd *cobra.Command, cfg types.Config, citationsPath, inputPath, outputPath string) error {
	store, err := citation.LoadFile(citationsPath)
	if err != nil {
		return err
	}
	slog.Debug("loaded citation database", "path", citationsPath, "citations", store.Len())

	in, closeIn, err := openInput(cmd, inputPath)
	if err != nil {
		return err
	}
	defer closeIn()

	client := lookup.NewFromConfig(cfg.Lookup)
	ctx := cmd.Context()

	if cfg.Output.Atomic {
		var buf bytes.Buffer
		if err := report.Process(ctx, in, &buf, store, client); err != nil {
			return err
		}
		return writeOutput(cmd, outputPath, buf.Bytes())
	}

	out, closeOut, err := openOutput(cmd, outputPath)
	if err != nil {
		return err
	}
	err = report.Process(ctx, in, out, store, client)
	if cerr := closeOut(); err == nil && cerr != nil {
		err = fmt.Errorf("closing output: %w", cerr)
	}
	return err
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func() error, error) {
	if path == "-" {
		return cmd.InOrStdin(), func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, f.Close, nil
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, f.Close, nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
