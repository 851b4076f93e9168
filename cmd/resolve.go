package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resolveEmail bool

var resolveCmd = &cobra.Command{
	Use:   "resolve [text]",
	Short: "Resolve a free-text mention or email address to a canonical force",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := loadResolver()
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		var id string
		if resolveEmail {
			id = resolver.ResolveEmail(text)
		} else {
			id = resolver.ResolveMention(text)
		}

		if id == "" {
			fmt.Println("unresolved")
			return nil
		}
		fmt.Printf("%s\t%s\n", id, resolver.CanonicalName(id))
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveEmail, "email", false, "treat input as an email address")
	rootCmd.AddCommand(resolveCmd)
}
