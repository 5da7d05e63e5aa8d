package cli

import (
	"fmt"
	"strconv"

	"github.com/glorpus-work/fcache/pkg/cache"
	"github.com/spf13/cobra"
)

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Long:  "Display entry count, total size and directory of the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := newOperation()
			if err != nil {
				return err
			}
			msg, err := op.Info()
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}

	return cmd
}

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove all cached entries",
		Long:  "Remove every cached entry to free up disk space",
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := newOperation()
			if err != nil {
				return err
			}
			msg, err := op.Clean()
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}

	return cmd
}

// NewChmodCmd creates the chmod command.
func NewChmodCmd() *cobra.Command {
	var (
		dirMode  string
		fileMode string
	)

	cmd := &cobra.Command{
		Use:   "chmod",
		Short: "Re-apply permission modes to the cached tree",
		Long:  "Recursively apply directory and file permission modes to every cached entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChmod(dirMode, fileMode)
		},
	}

	cmd.Flags().StringVar(&dirMode, "dir-mode", "", "Octal mode for directories, e.g. 0755")
	cmd.Flags().StringVar(&fileMode, "file-mode", "", "Octal mode for files, e.g. 0644")

	return cmd
}

func runChmod(dirMode, fileMode string) error {
	op, err := newOperation()
	if err != nil {
		return err
	}

	dir, err := parseOctalMode("dir-mode", dirMode)
	if err != nil {
		return err
	}
	file, err := parseOctalMode("file-mode", fileMode)
	if err != nil {
		return err
	}

	msg, err := op.Chmod(dir, file)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

// NewDirCmd creates the dir command.
func NewDirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := newOperation()
			if err != nil {
				return err
			}
			fmt.Println(op.Directory())
			return nil
		},
	}

	return cmd
}

func newOperation() (*cache.Operation, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	return cache.NewOperation(store), nil
}

func parseOctalMode(name, value string) (uint32, error) {
	if value == "" {
		return 0, nil
	}
	mode, err := strconv.ParseUint(value, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("--%s must be an octal mode like 0755, got %q", name, value)
	}
	return uint32(mode), nil
}
