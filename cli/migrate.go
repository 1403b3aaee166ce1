package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cppla/lifetrack/config"
	"github.com/cppla/lifetrack/store/gormstore"
	"github.com/cppla/lifetrack/utils"
)

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := utils.InitLogger(cfg); err != nil {
			return err
		}
		defer func() { _ = utils.Logger.Sync() }()

		if _, err := config.InitDatabase(gormstore.Models()...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables on %s\n", len(gormstore.Models()), cfg.DBDriver)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed-achievements",
	Short: "Insert the default achievement catalog",
	Long:  `Insert the default achievement catalog. Existing entries are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := bootstrap(cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.engine.CreateDefaultAchievements(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "inserted %d achievements\n", n)
		return nil
	},
}
