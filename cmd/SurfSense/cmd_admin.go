package main

import (
	"fmt"

	"SurfSense/internal/config"
	"SurfSense/internal/initial"
	"SurfSense/pkg/util/myjwt"
	"SurfSense/pkg/zlog"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the MySQL tables and the Milvus chunk collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := config.GetConfig()
		db, err := initial.OpenGorm(conf.MysqlConfig)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := initial.Migrate(db); err != nil {
			return err
		}
		zlog.Info("mysql schema migrated")

		cli, target, err := initial.OpenMilvus(cmd.Context(), conf.MilvusConfig)
		if err != nil {
			return err
		}
		if cli != nil {
			defer cli.Close()
			zlog.Info("milvus collection ready", zap.String("db", target.DBName), zap.String("collection", target.Collection))
		}
		return nil
	},
}

var (
	tokenUUID     string
	tokenUsername string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a JWT for calling the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := myjwt.GenerateToken(config.GetConfig().JwtConfig, tokenUUID, tokenUsername)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUUID, "uuid", "", "user id carried in the token")
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "", "display name carried in the token")
	_ = tokenCmd.MarkFlagRequired("uuid")
}
