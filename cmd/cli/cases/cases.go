// Package cases holds the case generation authoring commands.
package cases

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mjuvonen/truthseeker/internal/casegen"
	"github.com/mjuvonen/truthseeker/internal/story"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "cases",
	Title: "Case operations",
}

func init() {
	Generate.Flags().Int("story", 0, "story index to generate")
	Generate.Flags().String("difficulty", casegen.DifficultyMedium, "easy, medium or hard")
	Generate.Flags().Int64("seed", 0, "seed for deterministic output, omit for a fresh case")
	Generate.Flags().String("pool", "", "path to a story pool file, empty uses the embedded pool")
}

var Generate = &cobra.Command{
	Use:     "generate",
	GroupID: "cases",
	Short:   "Generate a case",
	Long: `Generates a case and prints it as JSON, including the quiz answers and
the solution. The same seed always produces the same case, which makes this
useful for reviewing what players will see for a given story and difficulty.`,
	Run: func(cmd *cobra.Command, _ []string) {
		storyIndex, err := cmd.Flags().GetInt("story")
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "invalid story flag: %v\n", err)
			return
		}
		difficulty, err := cmd.Flags().GetString("difficulty")
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "invalid difficulty flag: %v\n", err)
			return
		}
		if !casegen.ValidDifficulty(difficulty) {
			_, _ = fmt.Fprintf(os.Stderr, "unknown difficulty %q\n", difficulty)
			os.Exit(1)
		}
		poolPath, err := cmd.Flags().GetString("pool")
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "invalid pool flag: %v\n", err)
			return
		}

		var seed *int64
		if cmd.Flags().Changed("seed") {
			value, seedErr := cmd.Flags().GetInt64("seed")
			if seedErr != nil {
				_, _ = fmt.Fprintf(os.Stderr, "invalid seed flag: %v\n", seedErr)
				return
			}
			seed = &value
		}

		var p *story.Pool
		if poolPath == "" {
			p, err = story.Default()
		} else {
			p, err = story.Load(poolPath)
		}
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "load pool: %v\n", err)
			os.Exit(1)
		}

		generated, err := casegen.Generate(p, storyIndex, difficulty, seed)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "generate case: %v\n", err)
			os.Exit(1)
		}

		encoded, err := json.MarshalIndent(generated, "", "  ")
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "encode case: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(encoded))
	},
}
