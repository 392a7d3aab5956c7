package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grantdesk/applicants/backend/model"
	"github.com/grantdesk/applicants/backend/service"
)

var generateCmd = &cobra.Command{
	Use:   "generate <subject-id> <kind>",
	Short: "Generate a document and write it to disk",
	Long: `Generate produces the document of the given kind for a subject, stores it in
the configured storage and writes a copy to the output path. Kinds are
contract, consulting_contract and authority_document.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(cmd, args, func(ctx context.Context, a *app, subjectID string, kind model.DocumentKind) error {
			doc, err := a.docs.Generate(ctx, subjectID, kind)
			if err != nil {
				return err
			}
			return writeDocument(cmd, doc)
		})
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <subject-id> <kind>",
	Short: "Write a stored document to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(cmd, args, func(ctx context.Context, a *app, subjectID string, kind model.DocumentKind) error {
			doc, err := a.docs.Download(ctx, subjectID, kind)
			if err != nil {
				return err
			}
			return writeDocument(cmd, doc)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <subject-id> <kind>",
	Short: "Delete a stored document and clear its state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(cmd, args, func(ctx context.Context, a *app, subjectID string, kind model.DocumentKind) error {
			if err := a.docs.Reset(ctx, subjectID, kind); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %s for %s\n", kind, subjectID)
			return nil
		})
	},
}

var signCmd = &cobra.Command{
	Use:   "sign <subject-id> <kind>",
	Short: "Mark a generated document as signed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(cmd, args, func(ctx context.Context, a *app, subjectID string, kind model.DocumentKind) error {
			state, err := a.docs.Sign(ctx, subjectID, kind)
			if err != nil {
				return err
			}
			return printJSON(cmd, state)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <subject-id>",
	Short: "Show the state of every document of a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		states, err := a.docs.States(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, states)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.Driver != "sqlite" {
			return fmt.Errorf("database driver %q has no migrations", cfg.Database.Driver)
		}
		// newApp opens the database, which applies pending migrations
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", cfg.Database.Path)
		return a.Close()
	},
}

func init() {
	for _, cmd := range []*cobra.Command{generateCmd, downloadCmd} {
		cmd.Flags().StringP("output", "o", "", "output file or directory (default: attachment filename in the current directory)")
	}

	rootCmd.AddCommand(generateCmd, downloadCmd, resetCmd, signCmd, statusCmd, migrateCmd)
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg)
}

// withDocument parses "<subject-id> <kind>" and runs fn against a freshly wired app
func withDocument(cmd *cobra.Command, args []string, fn func(ctx context.Context, a *app, subjectID string, kind model.DocumentKind) error) error {
	kind, ok := model.ParseKind(args[1])
	if !ok {
		return fmt.Errorf("%w: %q", service.ErrUnknownKind, args[1])
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a, args[0], kind)
}

func writeDocument(cmd *cobra.Command, doc *service.Document) error {
	output, _ := cmd.Flags().GetString("output")
	switch {
	case output == "":
		output = doc.Filename
	case isDir(output):
		output = filepath.Join(output, doc.Filename)
	}

	if err := os.WriteFile(output, doc.Content, 0o640); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d bytes, %s)\n", output, doc.Format, len(doc.Content), doc.Source)
	return nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
