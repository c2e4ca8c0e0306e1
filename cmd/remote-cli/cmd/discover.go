package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-media-remote/internal/sdk"
)

// Candidate is a discovery result as printed by the CLI
type Candidate struct {
	Address        string   `json:"address"`
	Score          string   `json:"score"`
	ResponseTimeMS int64    `json:"response_time_ms"`
	ServerName     string   `json:"server_name,omitempty"`
	Version        string   `json:"version,omitempty"`
	Issues         []string `json:"issues,omitempty"`
	Error          string   `json:"error,omitempty"`
}

func candidateFrom(r sdk.RecommendedServer) Candidate {
	c := Candidate{
		Address:        r.Address,
		Score:          r.Score.String(),
		ResponseTimeMS: r.ResponseTime.Milliseconds(),
	}
	if r.SystemInfo != nil {
		c.ServerName = r.SystemInfo.ServerName
		c.Version = r.SystemInfo.Version
	}
	for _, issue := range r.Issues {
		c.Issues = append(c.Issues, string(issue))
	}
	if r.Err != nil {
		c.Error = r.Err.Error()
	}
	return c
}

var discoverCmd = &cobra.Command{
	Use:   "discover [host]",
	Short: "Rank the addresses a server answers on",
	Long: `Probe every candidate address for a host and rank them best first.

Input without a scheme is tried over https and http. Input without a port
is also tried on the default port of each scheme (8920 and 8096).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		results, err := client.Remote.Discovery().GetRecommendedServerCandidates(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		candidates := make([]Candidate, len(results))
		for i, r := range results {
			candidates[i] = candidateFrom(r)
		}

		if output == "json" {
			return printJSON(cmd.OutOrStdout(), candidates)
		}

		headers := []string{"ADDRESS", "SCORE", "RESPONSE", "NAME", "VERSION", "ISSUES"}
		rows := make([][]string, len(candidates))
		for i, c := range candidates {
			rows[i] = []string{
				c.Address,
				c.Score,
				fmt.Sprintf("%dms", c.ResponseTimeMS),
				c.ServerName,
				c.Version,
				strings.Join(c.Issues, ","),
			}
		}
		printTable(cmd.OutOrStdout(), headers, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
