package cmd

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	v1 "github.com/pojntfx/atorrent/pkg/api/http/v1"
	"github.com/pojntfx/atorrent/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	savePathFlag      = "save-path"
	startPausedFlag   = "start-paused"
	sequentialFlag    = "sequential"
	firstLastFlag     = "first-last-piece-priority"
	contentLayoutFlag = "content-layout"
	filesFlag         = "files"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

var addCmd = &cobra.Command{
	Use:     "add",
	Aliases: []string{"a"},
	Short:   "Register a torrent with the download backend and start it",
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

		result, err := manager.Add(v1.AcquisitionRequest{
			Identifier:             viper.GetString(identifierFlag),
			SavePath:               viper.GetString(savePathFlag),
			StartPaused:            viper.GetBool(startPausedFlag),
			Sequential:             viper.GetBool(sequentialFlag),
			FirstLastPiecePriority: viper.GetBool(firstLastFlag),
			ContentLayout:          viper.GetString(contentLayoutFlag),
			SelectedFilePaths:      viper.GetStringSlice(filesFlag),
		})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))

		return nil
	},
}

func init() {
	addCmd.PersistentFlags().String(apiUsernameFlag, "admin", "Username for the gateway")
	addCmd.PersistentFlags().String(apiPasswordFlag, "", "Password or OIDC access token for the gateway")
	addCmd.PersistentFlags().String(raddrFlag, "http://localhost:1337/", "Remote address")
	addCmd.PersistentFlags().String(identifierFlag, "", "Magnet link or torrent URL to acquire")
	addCmd.PersistentFlags().String(savePathFlag, "", "Directory on the backend to download into")
	addCmd.PersistentFlags().Bool(startPausedFlag, false, "Leave the torrent paused after registration")
	addCmd.PersistentFlags().Bool(sequentialFlag, false, "Download pieces in sequential order")
	addCmd.PersistentFlags().Bool(firstLastFlag, false, "Prioritize the first and last pieces of each file")
	addCmd.PersistentFlags().String(contentLayoutFlag, v1.ContentLayoutOriginal, "Content layout on the backend (Original, Subfolder or NoSubfolder)")
	addCmd.PersistentFlags().StringSlice(filesFlag, []string{}, `File paths to download (leave empty for all files)`)

	viper.AutomaticEnv()

	rootCmd.AddCommand(addCmd)
}
