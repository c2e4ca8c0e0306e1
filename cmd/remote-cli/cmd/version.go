package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-media-remote/internal/sdk"
	"github.com/sirosfoundation/go-media-remote/pkg/config"
)

// VersionResponse describes the client and the server versions it supports
type VersionResponse struct {
	Client             string `json:"client"`
	Version            string `json:"version"`
	Device             string `json:"device"`
	Product            string `json:"product"`
	MinimumVersion     string `json:"minimum_server_version"`
	RecommendedVersion string `json:"recommended_server_version"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the client identity and supported server versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}

		resp := VersionResponse{
			Client:             cfg.Client.Name,
			Version:            cfg.Client.Version,
			Device:             cfg.Device.Name,
			Product:            sdk.ProductName,
			MinimumVersion:     sdk.MinimumVersion,
			RecommendedVersion: sdk.RecommendedVersion,
		}
		if output == "json" {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", resp.Client, resp.Version, resp.Device)
		fmt.Fprintf(cmd.OutOrStdout(), "%s >= %s, recommended >= %s\n", resp.Product, resp.MinimumVersion, resp.RecommendedVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
