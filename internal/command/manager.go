package command

import (
	"fmt"

	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/pkg/jwt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	managerUsername string
	managerPassword string
	managerEmail    string
)

var createManagerCmd = &cobra.Command{
	Use:   "create-manager",
	Short: "Creates a manager account, or promotes an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.close()

		cfg := rt.cfg
		jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpireTime)
		auth := service.NewAuthService(repository.NewStore(rt.db), jwtManager, rt.log)

		user, err := auth.EnsureManager(cmd.Context(), managerUsername, managerPassword, managerEmail)
		if err != nil {
			return err
		}

		rt.log.Info("manager ready", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
		fmt.Fprintf(cmd.OutOrStdout(), "manager %s (%s)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	createManagerCmd.Flags().StringVar(&managerUsername, "username", "", "manager username")
	createManagerCmd.Flags().StringVar(&managerPassword, "password", "", "password, required when the user does not exist yet")
	createManagerCmd.Flags().StringVar(&managerEmail, "email", "", "email, required when the user does not exist yet")
	_ = createManagerCmd.MarkFlagRequired("username")
	rootCmd.AddCommand(createManagerCmd)
}
