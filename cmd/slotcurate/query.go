package main

import (
	"encoding/json"

	"github.com/calehh/slotcurate/app"
	"github.com/spf13/cobra"
)

type queryArguments struct {
	Url string
	ID  uint64
}

var queryArgs queryArguments

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the committed state",
}

func newQueryCmd(use, short, path string, indexed bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if indexed {
				data = app.EncodeQueryIndex(queryArgs.ID)
			}
			var out json.RawMessage
			if err := abciQuery(queryArgs.Url, path, data, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	urlFlag(cmd, &queryArgs.Url)
	if indexed {
		cmd.Flags().Uint64VarP(&queryArgs.ID, "id", "i", 0, "id or slot index")
	}
	return cmd
}

func init() {
	queryCmd.AddCommand(
		newQueryCmd("settings", "Show a settings record", "/settings/", true),
		newQueryCmd("list", "Show a list", "/lists/", true),
		newQueryCmd("slot", "Show a slot", "/slots/", true),
		newQueryCmd("dispute", "Show a court dispute and its slot", "/disputes/", true),
		newQueryCmd("header", "Show the state header", "/header/", false),
	)
}
