package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tidings/internal/legal"
)

// NewLegalCmd creates the legal command
func NewLegalCmd() *cobra.Command {
	var (
		lang      string
		audioFile string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "legal [question]",
		Short: "Ask the legal research assistant",
		Long: `Answer a legal question with cited acts, procedures and related news.
The assistant fans out over statute archives and news search, then
synthesizes a structured answer. Non-English questions are translated
before searching; answers come back in the requested language.

Examples:
  tidings legal "what does article 25 guarantee"
  tidings legal "மத சுதந்திரம் பற்றிய சட்டம்" --lang ta
  tidings legal "anti-conversion law status" --audio answer.pcm`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLegal(cmd.Context(), strings.Join(args, " "), lang, audioFile, asJSON)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "en", "answer language: en, hi, ta")
	cmd.Flags().StringVar(&audioFile, "audio", "", "also synthesize speech and write PCM audio to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit raw JSON")

	return cmd
}

func runLegal(ctx context.Context, question, lang, audioFile string, asJSON bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	assistant, err := a.legalAssistant()
	if err != nil {
		return err
	}

	resp, err := assistant.Ask(ctx, question, lang, audioFile != "")
	if err != nil {
		return fmt.Errorf("legal query failed: %w", err)
	}

	if audioFile != "" && resp.AudioBase64 != "" {
		audio, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
		if err != nil {
			return fmt.Errorf("failed to decode audio: %w", err)
		}
		if err := os.WriteFile(audioFile, audio, 0o644); err != nil {
			return fmt.Errorf("failed to write audio file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Audio written to %s\n", audioFile)
	}

	if asJSON {
		return printJSON(resp)
	}

	fmt.Println(resp.Answer)
	printReferences("Acts", resp.Acts)
	printReferences("Procedures", resp.Procedures)
	printReferences("Related News", resp.News)
	if resp.Error != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", resp.Error)
	}
	return nil
}

func printReferences(heading string, refs []legal.Reference) {
	if len(refs) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", heading)
	for _, ref := range refs {
		fmt.Printf("  - %s\n    %s\n", ref.Title, ref.URL)
	}
}
