package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/buildstamp/internal/config"
	"github.com/oshokin/buildstamp/internal/defines"
)

var (
	errNoPayload = errors.New("no payload given and the payload variable is not set")

	// decodeCmd turns a payload back into its defines.
	decodeCmd = &cobra.Command{
		Use:   "decode [payload]",
		Short: "Decode a DART_DEFINES payload into key=value lines.",
		Long: `Decodes every comma-separated token of a payload and prints the
resulting key=value lines in payload order. Without an argument the payload
is read from the payload variable (see --env-name).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := payloadFromArgs(args)
			if err != nil {
				return err
			}

			list, err := defines.Parse(payload)
			if err != nil {
				return err
			}

			for _, d := range list {
				if _, err = fmt.Fprintln(cmd.OutOrStdout(), d.String()); err != nil {
					return err
				}
			}

			return nil
		},
	}
)

// payloadFromArgs returns the payload argument or the value of the payload variable.
func payloadFromArgs(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	name := envName
	if name == "" {
		name = config.DefaultEnvName
	}

	payload, ok := os.LookupEnv(name)
	if !ok || payload == "" {
		return "", fmt.Errorf("%w: %s", errNoPayload, name)
	}

	return payload, nil
}
