package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/effrun-dev/effrun/effect"
	"github.com/effrun-dev/effrun/engine"
	"github.com/effrun-dev/effrun/starhost"
)

var (
	singleShotFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run SPECFILE",
	Short: "Run the effect program described by a spec file",
	Args:  cobra.MinimumNArgs(1),
	Run:   runCommand,
}

func init() {
	runCmd.Flags().BoolVar(&singleShotFlag, "single-shot", false, "Restrict continuations to a single resumption")
}

func runCommand(cmd *cobra.Command, args []string) {
	filename := args[0]
	spec, err := starhost.LoadSpecFromFile(filename)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't load specfile")
	}

	reg := effect.NewRegistry()
	if err := spec.Declare(reg); err != nil {
		log.Fatal().Err(err).Msg("Couldn't declare effects from specfile")
	}

	var opts []engine.Option
	if singleShotFlag {
		opts = append(opts, engine.WithSingleShot())
	}
	host := starhost.NewHost(reg, engine.New(reg, opts...))

	fmt.Fprintln(os.Stderr, color.Cyan.Sprintf("Running %s...", spec.Program.File))

	result, err := host.RunSource(spec.Program.File, nil, spec.Program.Entrypoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Error running effect program")
	}

	fmt.Fprintln(os.Stderr, color.Green.Sprint("✓ Program completed"))
	fmt.Printf("%v\n", result)
}
