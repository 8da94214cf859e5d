package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Badrul886/riverside/internal/security"
)

func newHashPasswordCommand() *cobra.Command {
	params := security.DefaultArgon2Params
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print an argon2id hash of a password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no password on stdin")
			}
			password := strings.TrimRight(line, "\r\n")
			hash, err := security.NewPasswordHasher(params).Hash(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	cmd.Flags().Uint32Var(&params.MemoryKiB, "memory", params.MemoryKiB, "argon2id memory in KiB")
	cmd.Flags().Uint32Var(&params.Iterations, "iterations", params.Iterations, "argon2id iterations")
	cmd.Flags().Uint8Var(&params.Parallelism, "parallelism", params.Parallelism, "argon2id parallelism")
	return cmd
}
