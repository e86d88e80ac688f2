package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eringen/blogd"
	"github.com/eringen/blogd/blog"
	"github.com/eringen/blogd/media"
	"github.com/eringen/blogd/store"
)

func withStore(ctx context.Context, fn func(*store.Store) error) error {
	s, err := store.New(ctx, globalConfig.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()
	return fn(s)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.Store) error {
			v, err := s.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return nil
		})
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var (
	userName     string
	userPassword string
	userEmployee bool
)

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := blogd.NormalizeUsername(userName)
		if err != nil {
			return err
		}
		hash, err := blogd.HashPassword(userPassword)
		if err != nil {
			return err
		}
		role := blog.RoleUser
		if userEmployee {
			role = blog.RoleEmployee
		}
		return withStore(cmd.Context(), func(s *store.Store) error {
			u := &blog.User{Username: name, PasswordHash: hash, Role: role}
			if err := s.CreateUser(cmd.Context(), u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (id %d, role %s)\n", u.Username, u.ID, u.Role)
			return nil
		})
	},
}

var userRoleCmd = &cobra.Command{
	Use:   "role USERNAME ROLE",
	Short: "Change an account's role (user or employee)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := blog.Role(args[1])
		if !role.Valid() {
			return fmt.Errorf("unknown role %q", args[1])
		}
		return withStore(cmd.Context(), func(s *store.Store) error {
			u, err := s.GetUserByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := s.SetUserRole(cmd.Context(), u.ID, role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Username, role)
			return nil
		})
	},
}

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.Store) error {
			c, err := s.CreateCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created category %q (id %d)\n", c.Name, c.ID)
			return nil
		})
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.Store) error {
			cats, err := s.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", c.ID, c.Name)
			}
			return nil
		})
	},
}

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Manage posts",
}

var postDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a post with its images, comments, likes and saves",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid post id %q", args[0])
		}
		files, err := media.NewFileStore(globalConfig.MediaDir, globalConfig.MaxImageWidth)
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(s *store.Store) error {
			if err := s.DeletePost(cmd.Context(), id); err != nil {
				return err
			}
			if err := files.RemovePost(id); err != nil {
				return fmt.Errorf("post %d deleted but its files remain: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted post %d\n", id)
			return nil
		})
	},
}

func init() {
	userAddCmd.Flags().StringVarP(&userName, "username", "u", "", "account name")
	userAddCmd.Flags().StringVarP(&userPassword, "password", "p", "", "account password (min 8 characters)")
	userAddCmd.Flags().BoolVar(&userEmployee, "employee", false, "grant the employee role (can publish posts)")
	_ = userAddCmd.MarkFlagRequired("username")
	_ = userAddCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userAddCmd, userRoleCmd)
	categoryCmd.AddCommand(categoryAddCmd, categoryListCmd)
	postCmd.AddCommand(postDeleteCmd)
}
