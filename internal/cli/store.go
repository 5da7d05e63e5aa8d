package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/glorpus-work/fcache/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewGetCmd creates the get command.
func NewGetCmd() *cobra.Command {
	var conds conditionFlags
	var output string

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read a cache entry",
		Long:  "Print the bytes stored under a key if a valid entry exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args[0], &conds, output)
		},
	}

	conds.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the entry to a file instead of stdout")

	return cmd
}

func runGet(key string, conds *conditionFlags, output string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	data, ok, err := store.Get(key, conds.conditions())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no valid cache entry for key %q", key)
	}

	if output != "" {
		return os.WriteFile(output, data, 0o644)
	}
	_, err = os.Stdout.Write(data)
	return err
}

// NewSetCmd creates the set command.
func NewSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> [file]",
		Short: "Write a cache entry",
		Long:  "Store the contents of a file (or stdin) under a key, overwriting any existing entry",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 2 {
				file = args[1]
			}
			return runSet(args[0], file)
		},
	}

	return cmd
}

func runSet(key, file string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	var data []byte
	if file != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read entry contents: %w", err)
	}

	path, err := store.Set(key, data)
	if err != nil {
		return err
	}

	logger.Success("Stored cache entry", logrus.Fields{"key": key, "path": path, "size": len(data)})
	return nil
}

// NewExistsCmd creates the exists command.
func NewExistsCmd() *cobra.Command {
	var conds conditionFlags

	cmd := &cobra.Command{
		Use:   "exists <key>",
		Short: "Check whether a valid cache entry exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExists(args[0], &conds)
		},
	}

	conds.register(cmd)

	return cmd
}

func runExists(key string, conds *conditionFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	ok, err := store.Exists(key, conds.conditions())
	if err != nil {
		return err
	}
	fmt.Println(ok)
	return nil
}

// NewPathCmd creates the path command.
func NewPathCmd() *cobra.Command {
	var actual bool

	cmd := &cobra.Command{
		Use:   "path <key>",
		Short: "Print the path a key maps to",
		Long:  "Print the sharded path for a key without touching the filesystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(args[0], actual)
		},
	}

	cmd.Flags().BoolVar(&actual, "actual", false, "Print the physical storage path instead of the public one")

	return cmd
}

func runPath(key string, actual bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	if actual {
		fmt.Println(store.ActualPath(key))
	} else {
		fmt.Println(store.Path(key))
	}
	return nil
}
