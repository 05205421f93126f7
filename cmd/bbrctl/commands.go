package main

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"bbrctl/internal/app"
	"bbrctl/internal/tuning"
)

var enableMode string

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable BBR with the plain, optimized or advanced parameter set",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := tuning.ParseMode(enableMode)
		if err != nil {
			return err
		}
		env, err := setup(true)
		if err != nil {
			return err
		}

		res, err := env.orch.Enable(cmd.Context(), mode)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res)
		return checkOutcome(res.Outcome)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Remove the BBR configuration and fall back to the default algorithm",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(true)
		if err != nil {
			return err
		}

		res, err := env.orch.Disable(cmd.Context())
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res)
		return checkOutcome(res.Outcome)
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Apply the network buffer and file descriptor tuning bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(true)
		if err != nil {
			return err
		}

		res, err := env.orch.OptimizeSystem(cmd.Context())
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res)
		return checkOutcome(res.Outcome)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the managed files from their backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(true)
		if err != nil {
			return err
		}

		res, err := env.orch.Restore(cmd.Context())
		printRestore(cmd.OutOrStdout(), res)
		if err != nil {
			return err
		}
		if !res.Restored() {
			return checkOutcome(app.OutcomeNothingToRestore)
		}
		return nil
	},
}

var quickSetupCmd = &cobra.Command{
	Use:   "quick-setup",
	Short: "Enable optimized BBR and then apply the system tuning bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(true)
		if err != nil {
			return err
		}

		results, err := env.orch.QuickSetup(cmd.Context())
		outcomes := make([]app.Outcome, 0, len(results))
		for _, res := range results {
			printResult(cmd.OutOrStdout(), res)
			outcomes = append(outcomes, res.Outcome)
		}
		if err != nil {
			return err
		}
		return checkOutcome(outcomes...)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show kernel support and the live congestion control state",
	Long: `Show kernel support and the live congestion control state.

Status only reads: module availability comes from the available algorithm list and the
module tree, and modprobe is never run. "enable" is what loads the module.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(false)
		if err != nil {
			return err
		}
		return printStatus(cmd.OutOrStdout(), env.orch.Status(cmd.Context()))
	},
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "List the lines this tool manages in each file",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(false)
		if err != nil {
			return err
		}
		printView(cmd.OutOrStdout(), env.orch.ViewConfig())
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(false)
		if err != nil {
			return err
		}
		enc := toml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndentTables(true)
		return enc.Encode(env.cfg)
	},
}

func init() {
	enableCmd.Flags().StringVarP(&enableMode, "mode", "m", string(tuning.ModePlain), "parameter set: plain, optimized or advanced")

	rootCmd.AddCommand(
		enableCmd,
		disableCmd,
		optimizeCmd,
		restoreCmd,
		quickSetupCmd,
		statusCmd,
		viewCmd,
		configCmd,
	)
}
