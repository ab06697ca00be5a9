/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valpere/chaptran/internal/prompt"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts [STYLE]",
	Short: "List prompt styles or show one rendered for a language",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			for _, style := range prompt.Styles() {
				marker := " "
				if style == prompt.DefaultStyle {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, style)
			}
			return nil
		}

		lang, _ := cmd.Flags().GetString("lang")
		text, err := prompt.Render(args[0], lang)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.Flags().StringP("lang", "l", "en", "Target language used to render the style")
}
