// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/auth"
)

// NewHashCmd creates the hash subcommand.
func NewHashCmd() *cobra.Command {
	var verify string

	cmd := &cobra.Command{
		Use:   "hash [PASSWORD]",
		Short: "Hash a password, or check one against a stored hash",
		Long: `Print the argon2id hash of PASSWORD. Without an argument the
password is read from the first line of standard input. With --verify, check
the password against HASH instead; a mismatch exits non-zero.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, args)
			if err != nil {
				return err
			}
			return runHash(cmd, auth.NewArgon2idHasher(), password, verify)
		},
	}

	cmd.Flags().StringVar(&verify, "verify", "", "stored hash to check the password against")
	return cmd
}

func runHash(cmd *cobra.Command, hasher auth.PasswordHasher, password, verify string) error {
	if verify == "" {
		hash, err := hasher.Hash(password)
		if err != nil {
			return err //nolint:wrapcheck // hasher errors carry codes
		}
		cmd.Println(hash)
		return nil
	}

	ok, err := hasher.Verify(password, verify)
	if err != nil {
		return err //nolint:wrapcheck // hasher errors carry codes
	}
	if !ok {
		cmd.Println("no match")
		return oops.Code("HASH_MISMATCH").Errorf("password does not match hash")
	}
	cmd.Println("match")
	return nil
}

func readPassword(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", oops.Code("HASH_READ_FAILED").Wrap(err)
		}
		return "", oops.Code("AUTH_EMPTY_PASSWORD").Errorf("no password given")
	}
	return strings.TrimRight(scanner.Text(), "\r"), nil
}
