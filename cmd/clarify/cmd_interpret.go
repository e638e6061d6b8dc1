package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AryaShetye/clarify-md/internal/render"
	"github.com/AryaShetye/clarify-md/internal/types"
)

var narrativeFile string

// interpretCmd runs one narrative through the full pipeline
var interpretCmd = &cobra.Command{
	Use:   "interpret [narrative]",
	Short: "Interpret a patient narrative",
	Long: `Runs one narrative through the interpretation pipeline:
  1. Fan out: figurative language, emotional signals and risk, in parallel
  2. Collaborate: each extractor refines its findings against the others
  3. Synthesize: merge partial findings, apply the deterministic risk floor
  4. Validate: scrub diagnostic language, attach disclaimers

The narrative is taken from the arguments, or from --file when set.

Examples:
  clarify interpret "my chest feels like an elephant is sitting on it"
  clarify interpret --file narrative.txt --json
  clarify interpret --offline "I feel butterflies all the time"`,
	Args: cobra.ArbitraryArgs,
	RunE: runInterpret,
}

func runInterpret(cmd *cobra.Command, args []string) error {
	narrative, err := readNarrative(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown; not-yet-returned extractor slots degrade
	// instead of aborting the run
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	pipe, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	doc, err := pipe.Process(ctx, narrative)
	if err != nil {
		return err
	}
	return printDocument(doc)
}

// readNarrative resolves the narrative text from --file or the arguments.
func readNarrative(args []string) (string, error) {
	if narrativeFile != "" {
		data, err := os.ReadFile(narrativeFile)
		if err != nil {
			return "", fmt.Errorf("failed to read narrative file: %w", err)
		}
		return string(data), nil
	}
	if len(args) == 0 {
		return "", errors.New("provide a narrative as an argument or via --file")
	}
	return strings.Join(args, " "), nil
}

// printDocument writes the interpretation as JSON or rendered markdown.
func printDocument(doc *types.SynthesizedDocument) error {
	if jsonOut {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	term, err := render.NewTerminal(lightMode, 0)
	if err != nil {
		return err
	}
	out, err := term.Document(doc)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
