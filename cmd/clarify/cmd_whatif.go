package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AryaShetye/clarify-md/internal/render"
	"github.com/AryaShetye/clarify-md/internal/whatif"
)

var (
	baselineText     string
	hypotheticalText string
)

// whatifCmd compares two phrasings of the same situation
var whatifCmd = &cobra.Command{
	Use:   "whatif",
	Short: "Compare two phrasings of the same situation",
	Long: `Runs the pipeline once for each narrative and reports how the
interpretation shifts: risk level delta, uncertainties introduced by the
rewording, and whether deterministic safety patterns fired in only one of
the two. Neither run is stored; the comparison is ephemeral.

Example:
  clarify whatif \
    --baseline "I get winded going up the stairs" \
    --hypothetical "I cannot breathe even sitting still"`,
	Args: cobra.NoArgs,
	RunE: runWhatIf,
}

func runWhatIf(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	cmp, err := whatif.NewComparator(pipe, logger).Compare(ctx, baselineText, hypotheticalText)
	if err != nil {
		return err
	}

	if jsonOut {
		data, err := json.MarshalIndent(cmp, "", "  ")
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
	out, err := term.Markdown(render.Comparison(cmp))
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
