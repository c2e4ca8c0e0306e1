package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-media-remote/internal/remote"
	"github.com/sirosfoundation/go-media-remote/internal/sdk"
)

var (
	serverAddress string
	accessToken   string
	username      string
	password      string
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the public identity of a server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connectClient(cmd.Context(), serverAddress, accessToken)
		if err != nil {
			return err
		}
		defer client.Close()

		return printServer(cmd.OutOrStdout(), client.Auth.CurrentServer())
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the user an access token belongs to",
	RunE: func(cmd *cobra.Command, args []string) error {
		if accessToken == "" {
			return fmt.Errorf("--token is required")
		}

		client, err := connectClient(cmd.Context(), serverAddress, accessToken)
		if err != nil {
			return err
		}
		defer client.Close()

		getUser := remote.NewUserAPI(client.Remote, func(api *sdk.API) func(context.Context) (*sdk.User, error) {
			return api.GetCurrentUser
		})
		user, err := getUser(cmd.Context())
		if err != nil {
			return err
		}

		if output == "json" {
			return printJSON(cmd.OutOrStdout(), user)
		}
		printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "SERVER"},
			[][]string{{user.ID, user.Name, user.ServerID}})
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and print the access token",
	Long: `Sign in with a username and password and print the access token.

The password is read from REMOTE_PASSWORD when --password is not given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if username == "" {
			return fmt.Errorf("--username is required")
		}
		pw := password
		if pw == "" {
			pw = os.Getenv("REMOTE_PASSWORD")
		}

		client, err := connectClient(cmd.Context(), serverAddress, "")
		if err != nil {
			return err
		}
		defer client.Close()

		result, err := client.Remote.API().AuthenticateUserByName(cmd.Context(), username, pw)
		if err != nil {
			return fmt.Errorf("sign in failed: %w", err)
		}
		client.Auth.SetCurrentUserToken(result.AccessToken)
		logFor(client).Info("signed in")

		if output == "json" {
			return printJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.AccessToken)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session an access token belongs to",
	RunE: func(cmd *cobra.Command, args []string) error {
		if accessToken == "" {
			return fmt.Errorf("--token is required")
		}

		client, err := connectClient(cmd.Context(), serverAddress, accessToken)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Remote.API().Logout(cmd.Context()); err != nil {
			return err
		}
		client.Auth.Logout()

		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

func addServerFlags(cmd *cobra.Command, withToken bool) {
	cmd.Flags().StringVarP(&serverAddress, "server", "s", getEnvOrDefault("REMOTE_SERVER", ""), "Server address")
	if withToken {
		cmd.Flags().StringVarP(&accessToken, "token", "t", getEnvOrDefault("REMOTE_TOKEN", ""), "Access token")
	}
}

func init() {
	for _, c := range []*cobra.Command{infoCmd, whoamiCmd, logoutCmd} {
		addServerFlags(c, true)
		rootCmd.AddCommand(c)
	}

	addServerFlags(loginCmd, false)
	loginCmd.Flags().StringVar(&username, "username", "", "User name")
	loginCmd.Flags().StringVar(&password, "password", "", "Password")
	rootCmd.AddCommand(loginCmd)
}
