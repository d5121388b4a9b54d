package dbcmd

import (
	"fmt"

	"github.com/crucial707/dermalens/internal/config"
	"github.com/crucial707/dermalens/internal/db"
	"github.com/spf13/cobra"
)

// InitDB registers "db migrate", which creates or upgrades the schema using
// the same configuration as the server.
func InitDB(rootCmd *cobra.Command) {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database tables",
		Long: `Apply the embedded migrations to the database named by DB_DRIVER and DB_DSN.
Running it again is harmless.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			conn, err := db.Connect(cfg.DBDriver, cfg.DBDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer conn.Close()

			if err := db.Migrate(conn, cfg.DBDriver); err != nil {
				return err
			}
			fmt.Printf("Database ready (%s).\n", cfg.DBDriver)
			return nil
		},
	})

	rootCmd.AddCommand(dbCmd)
}
