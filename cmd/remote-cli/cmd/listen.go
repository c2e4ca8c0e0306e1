package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-media-remote/internal/websocket"
)

var (
	listenCount   int
	listenTimeout time.Duration
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print messages from the session socket",
	Long: `Open the session socket and print every message the server sends.

Runs until interrupted, until --count messages arrived or until --timeout
elapsed. Keep alive traffic is answered and not printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if accessToken == "" {
			return fmt.Errorf("--token is required")
		}

		client, err := connectClient(cmd.Context(), serverAddress, accessToken)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx := cmd.Context()
		if listenTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, listenTimeout)
			defer cancel()
		}

		messages := make(chan websocket.Message, 16)
		remove := client.Socket.OnMessage(func(msg websocket.Message) {
			if msg.MessageType == websocket.MessageForceKeepAlive || msg.MessageType == websocket.MessageKeepAlive {
				return
			}
			select {
			case messages <- msg:
			case <-ctx.Done():
			}
		})
		defer remove()

		if err := client.Socket.Start(); err != nil {
			return err
		}
		logFor(client).Info("listening", zap.String("server", client.Auth.CurrentServer().PublicAddress))

		received := 0
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg := <-messages:
				if output == "json" {
					if err := printJSON(cmd.OutOrStdout(), msg); err != nil {
						return err
					}
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", msg.MessageType, string(msg.Data))
				}
				received++
				if listenCount > 0 && received >= listenCount {
					return nil
				}
			}
		}
	},
}

func init() {
	addServerFlags(listenCmd, true)
	listenCmd.Flags().IntVarP(&listenCount, "count", "n", 0, "Exit after this many messages")
	listenCmd.Flags().DurationVar(&listenTimeout, "timeout", 0, "Exit after this long")
	rootCmd.AddCommand(listenCmd)
}
