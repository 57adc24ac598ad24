// Package pool holds the story pool authoring commands.
package pool

import (
	"fmt"
	"os"

	"github.com/mjuvonen/truthseeker/internal/story"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "pool",
	Title: "Story pool operations",
}

var Validate = &cobra.Command{
	Use:     "validate [file]",
	GroupID: "pool",
	Short:   "Validate a story pool",
	Long: `Cross-checks every template placeholder in the pool against the story
variables and reports the locations that would render empty. Without a file
argument the embedded pool is checked.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		var (
			p   *story.Pool
			err error
		)
		if len(args) == 0 {
			p, err = story.Default()
		} else {
			p, err = story.Load(args[0])
		}
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "load pool: %v\n", err)
			os.Exit(1)
		}

		if err = p.Validate(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("pool OK: %d stories\n", p.Len())
	},
}
