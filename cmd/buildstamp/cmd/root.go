package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/buildstamp/internal/config"
	"github.com/oshokin/buildstamp/internal/logger"
	"github.com/oshokin/buildstamp/internal/service/stamp"
	"github.com/oshokin/buildstamp/internal/version"
)

var (
	// configPath stores the settings file path.
	configPath string
	// projectRoot is the Flutter project directory.
	projectRoot string
	// namespace overrides the define key prefix.
	namespace string
	// envName overrides the payload variable name.
	envName string
	// scriptDir overrides the build-hook directory.
	scriptDir string
	// format selects the payload output format.
	format string
	// noEnv leaves the process environment untouched.
	noEnv bool
	// logLevel is the minimum level of stderr logs.
	logLevel string

	// rootCmd derives the build version and runs native-module injection.
	rootCmd = &cobra.Command{
		Use:   "buildstamp [flags] [-- inject-command [args...]]",
		Short: "Stamp a Flutter build with a version derived from pubspec.yaml and git.",
		Long: `Derives the build version from the manifest version and the git checkout,
encodes it as DART_DEFINES and hands it to the build.

The display version has the form <base>-<hash>+<count>, where <base> is the
pubspec.yaml version without its "+build" part, <hash> is the abbreviated
HEAD commit and <count> is the number of commits reachable from HEAD.
Missing sources never fail the build: they fall back to fixed values.

Arguments after "--" form the native-module injection command. It runs once,
after the variable is set, with the hook directory and the project root
appended as its last two arguments.`,
		Args:              injectCommandArgs,
		SilenceUsage:      true,
		PersistentPreRunE: applyLogLevel,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := commonOptions()
			options.ScriptDir = scriptDir
			options.InjectCommand = args
			options.SkipEnv = noEnv
			options.Format = format
			options.Stdout = cmd.OutOrStdout()

			return stamp.Run(ctx, options)
		},
	}
)

// Execute runs the buildstamp CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// commonOptions collects the flags shared by every subcommand.
func commonOptions() *stamp.Options {
	return &stamp.Options{
		ConfigPath:  configPath,
		ProjectRoot: projectRoot,
		Namespace:   namespace,
		EnvName:     envName,
	}
}

// injectCommandArgs only accepts positional arguments after "--".
func injectCommandArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 && cmd.ArgsLenAtDash() != 0 {
		return fmt.Errorf("unexpected arguments %q: put the injection command after \"--\"", args)
	}

	return nil
}

// applyLogLevel sets the global log level from the --log-level flag.
func applyLogLevel(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "",
		"path to settings file (default: "+config.DefaultConfigFilename+" in the project root, if present)")
	flags.StringVarP(&projectRoot, "project-root", "p", ".", "Flutter project directory holding the manifest")
	flags.StringVarP(&namespace, "namespace", "n", "", "define key prefix (default \""+config.DefaultNamespace+"\")")
	flags.StringVarP(&envName, "env-name", "e", "", "payload variable name (default \""+config.DefaultEnvName+"\")")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	rootCmd.Flags().StringVarP(&scriptDir, "script-dir", "s", "",
		"build-hook directory passed to the injector (default \""+config.DefaultScriptDir+"\")")
	rootCmd.Flags().StringVarP(&format, "format", "f", stamp.FormatEnv, "payload output format: env, export or raw")
	rootCmd.Flags().BoolVar(&noEnv, "no-env", false, "do not set the payload variable in this process (the injector still receives it)")

	rootCmd.AddCommand(showCmd, decodeCmd)
}
