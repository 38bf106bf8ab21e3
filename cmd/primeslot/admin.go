package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/primeslot/primeslot/pkg/auth"
	"github.com/primeslot/primeslot/pkg/roster"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create --email EMAIL",
	Short: "Create an admin account in the local store",
	Long: `Create an admin account directly in the data directory. The server
must not be running, since the store file is locked while it is open.

The password is read from --password or PRIMESLOT_ADMIN_PASSWORD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("PRIMESLOT_ADMIN_PASSWORD")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		admin, err := auth.NewAdmins(store).Create(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}

		fmt.Printf("✓ Admin created: %s\n", admin.Email)
		fmt.Printf("  ID: %s\n", admin.ID)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue credentials",
}

var tokenMemberCmd = &cobra.Command{
	Use:   "member MEMBER_ID",
	Short: "Issue a signed member token",
	Long: `Issue a bearer token that identifies the caller as the given member.
The member must exist in the local store. The token is signed with the
configured auth.jwtSecret, so the server must share that secret.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		memberID := args[0]
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(cfg.Auth.JWTSecret) < 16 {
			return fmt.Errorf("auth.jwtSecret must be set to issue tokens")
		}
		if ttl <= 0 {
			ttl = cfg.Auth.MemberTokenTTL
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if _, err := roster.NewService(store, nil).GetMember(ctx, memberID); err != nil {
			return err
		}

		token, err := auth.MakeMemberToken(memberID, cfg.Auth.JWTSecret, ttl)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminCreateCmd)
	adminCreateCmd.Flags().String("email", "", "Admin email address (required)")
	adminCreateCmd.Flags().String("password", "", "Admin password")
	_ = adminCreateCmd.MarkFlagRequired("email")

	tokenCmd.AddCommand(tokenMemberCmd)
	tokenMemberCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to auth.memberTokenTTL)")
}
