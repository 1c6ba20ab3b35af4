package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pojntfx/atorrent/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	raddrFlag      = "raddr"
	identifierFlag = "identifier"
)

var (
	errMissingAPIPassword = errors.New("missing API password")
	errMissingAPIUsername = errors.New("missing API username")
	errMissingIdentifier  = errors.New("missing magnet link or torrent URL")
)

var infoCmd = &cobra.Command{
	Use:     "info",
	Aliases: []string{"i"},
	Short:   "Resolve a magnet link or torrent URL into its metadata record",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		if strings.TrimSpace(viper.GetString(apiPasswordFlag)) == "" {
			return errMissingAPIPassword
		}

		if strings.TrimSpace(viper.GetString(apiUsernameFlag)) == "" {
			return errMissingAPIUsername
		}

		if strings.TrimSpace(viper.GetString(identifierFlag)) == "" {
			return errMissingIdentifier
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		manager := client.NewManager(
			viper.GetString(raddrFlag),
			viper.GetString(apiUsernameFlag),
			viper.GetString(apiPasswordFlag),
			ctx,
		)

		record, err := manager.GetInfo(viper.GetString(identifierFlag))
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))

		return nil
	},
}

func init() {
	infoCmd.PersistentFlags().String(apiUsernameFlag, "admin", "Username for the gateway")
	infoCmd.PersistentFlags().String(apiPasswordFlag, "", "Password or OIDC access token for the gateway")
	infoCmd.PersistentFlags().String(raddrFlag, "http://localhost:1337/", "Remote address")
	infoCmd.PersistentFlags().String(identifierFlag, "", "Magnet link or torrent URL to get info for")

	viper.AutomaticEnv()

	rootCmd.AddCommand(infoCmd)
}
