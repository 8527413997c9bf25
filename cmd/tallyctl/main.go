// Command tallyctl is an operator tool for inspecting the identity graph of
// a running server. Both commands require a bearer token for an existing
// account, since the debug endpoints sit behind the same auth as the API.
package main

import (
	"fmt"
	"net/http"
	"os"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/arvhn/tally/pkg/api"
)

var (
	serverAddr string
	authToken  string
)

func main() {
	root := &cobra.Command{
		Use:           "tallyctl",
		Short:         "Inspect member identity resolution on a running server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:8080", "server base URL")
	root.PersistentFlags().StringVar(&authToken, "token", os.Getenv("TALLY_TOKEN"), "bearer token (defaults to TALLY_TOKEN)")

	root.AddCommand(resolveCmd(), aliasesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <member-id>",
		Short: "Resolve a member identifier to its canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := connect.NewClient[api.ResolveMemberRequest, api.ResolveMemberResponse](
				http.DefaultClient,
				serverAddr+api.IdentityResolveMemberProcedure,
				connect.WithCodec(api.Codec{}),
			)
			res, err := client.CallUnary(cmd.Context(), authedRequest(&api.ResolveMemberRequest{MemberID: args[0]}))
			if err != nil {
				return err
			}
			fmt.Printf("%s -> %s\n", res.Msg.MemberID, res.Msg.CanonicalMemberID)
			return nil
		},
	}
}

func aliasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aliases <member-id>",
		Short: "List every alias of the member's canonical identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := connect.NewClient[api.ListAliasesRequest, api.ListAliasesResponse](
				http.DefaultClient,
				serverAddr+api.IdentityListAliasesProcedure,
				connect.WithCodec(api.Codec{}),
			)
			res, err := client.CallUnary(cmd.Context(), authedRequest(&api.ListAliasesRequest{MemberID: args[0]}))
			if err != nil {
				return err
			}
			fmt.Println("canonical:", res.Msg.CanonicalMemberID)
			for _, alias := range res.Msg.AliasMemberIDs {
				fmt.Println("alias:    ", alias)
			}
			return nil
		},
	}
}

func authedRequest[T any](msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if authToken != "" {
		req.Header().Set("Authorization", "Bearer "+authToken)
	}
	return req
}
