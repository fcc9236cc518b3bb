// Command openmind-infra synthesizes, checks and deploys the OpenMind stack.
//
// Usage:
//
//	openmind-infra synth              Print the CloudFormation template
//	openmind-infra validate           Check config, policy rules and cfn-lint
//	openmind-infra plan               Show what a deploy would change
//	openmind-infra deploy             Plan and apply
//	openmind-infra version            Show version
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openmind/openmind-infra/internal/config"
	"github.com/openmind/openmind-infra/internal/logger"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	configPath string
}

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "openmind-infra",
		Short: "Deploy the OpenMind service on ECS Fargate",
		Long: `openmind-infra describes the OpenMind deployment as typed Go values and
synthesizes it into a CloudFormation template: a two-zone VPC, an ECS Fargate
cluster, a task definition wired to ECR and Secrets Manager, and a public
Application Load Balancer forwarding port 80 to the container.

Settings come from defaults, an optional --config file, OPENMIND_* environment
variables and flags, in increasing precedence:

    OPENMIND_REGISTRY_IMAGE_TAG=v2 openmind-infra plan`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "Config file (yaml or json)")
	flags.String("log-level", "", "Log level: debug, info, warning or error")
	flags.String("stack-name", "", "CloudFormation stack name")
	flags.String("region", "", "AWS region")
	flags.String("image-tag", "", "Container image tag")
	flags.String("repository", "", "ECR repository name")
	flags.String("secret-name", "", "Secrets Manager secret holding the container keys")

	rootCmd.AddCommand(
		newSynthCmd(g),
		newValidateCmd(g),
		newLintCmd(g),
		newGraphCmd(g),
		newDiffCmd(g),
		newPlanCmd(g),
		newPreflightCmd(g),
		newDeployCmd(g),
		newDestroyCmd(g),
		newOutputsCmd(g),
		newWatchCmd(g),
		newVersionCmd(),
	)

	return rootCmd
}

// load reads the validated configuration and returns a context carrying
// a logger at the configured level.
func (g *globals) load(cmd *cobra.Command) (context.Context, *config.Config, error) {
	cfg, err := config.Load(g.configPath, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	return g.context(cmd, cfg), cfg, nil
}

// read is load without validation.
func (g *globals) read(cmd *cobra.Command) (context.Context, *config.Config, error) {
	cfg, err := config.Read(g.configPath, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	return g.context(cmd, cfg), cfg, nil
}

func (g *globals) context(cmd *cobra.Command, cfg *config.Config) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.SetupLogger(ctx, cfg.Log.Level)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "openmind-infra %s\n", getVersion())
		},
	}
}
