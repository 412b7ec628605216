package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"factfetch/internal/linkextract"
)

type extractedLink struct {
	URL      string `json:"url"`
	Family   string `json:"family"`
	Playlist bool   `json:"playlist"`
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "extract [text]",
		Short:       "Print the supported video links found in text (or stdin)",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			links := linkextract.Extract(text)

			if ctx.jsonOutput() {
				out := make([]extractedLink, 0, len(links))
				for _, link := range links {
					family, _ := linkextract.Classify(link)
					out = append(out, extractedLink{
						URL:      link,
						Family:   string(family),
						Playlist: linkextract.IsPlaylist(link),
					})
				}
				return writeJSON(cmd, out)
			}
			for _, link := range links {
				fmt.Fprintln(cmd.OutOrStdout(), link)
			}
			return nil
		},
	}
}
