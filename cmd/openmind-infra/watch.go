package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/openmind/openmind-infra/internal/descriptor"
	"github.com/openmind/openmind-infra/internal/linter"
	"github.com/openmind/openmind-infra/internal/validation"
)

// newWatchCmd creates the "watch" subcommand for re-synthesizing on config changes.
func newWatchCmd(g *globals) *cobra.Command {
	var (
		debounce     time.Duration
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize and lint when the config file changes",
		Long: `Watch monitors the --config file and, on each change, reloads it,
synthesizes the template and runs the policy rules. Rapid changes are
debounced.

Examples:
    openmind-infra watch --config openmind.yaml
    openmind-infra watch --config openmind.yaml -o template.json --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.configPath == "" {
				return fmt.Errorf("watch requires --config")
			}
			return runWatch(cmd, g, watchOptions{
				debounce:     debounce,
				outputFormat: outputFormat,
				outputFile:   outputFile,
			})
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format for the template: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the template here after each successful rebuild")

	return cmd
}

type watchOptions struct {
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// runWatch watches the config file's directory, since editors often replace
// files by rename.
func runWatch(cmd *cobra.Command, g *globals, opts watchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	target, err := filepath.Abs(g.configPath)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", target, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching: %s\n", target)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	rebuild(cmd, g, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(out, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigEvent(event, target) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(out, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			rebuild(cmd, g, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watch error: %v\n", err)

		case <-sigChan:
			fmt.Fprintln(out, "\nStopping watch...")
			return nil
		}
	}
}

// isConfigEvent reports whether event writes or recreates the config file.
func isConfigEvent(event fsnotify.Event, target string) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != target {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// rebuild reloads the config, synthesizes and lints. It reports whether the
// template is free of policy errors.
func rebuild(cmd *cobra.Command, g *globals, opts watchOptions) bool {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	_, cfg, err := g.load(cmd)
	if err != nil {
		fmt.Fprintf(errOut, "Config error: %v\n", err)
		return false
	}

	tmpl, err := descriptor.Synthesize(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "Synth error: %v\n", err)
		return false
	}

	result := linter.Lint(tmpl, linter.Options{Expect: linter.ExpectationsFromConfig(cfg)})
	for _, issue := range result.Issues {
		fmt.Fprintf(out, "%s: %s\n", issue.Severity, validation.FormatIssue(issue))
	}
	if !result.Success {
		fmt.Fprintln(out, "Lint failed, template not written")
		return false
	}
	fmt.Fprintln(out, "Lint passed")

	if opts.outputFile == "" {
		fmt.Fprintf(out, "Synthesized %d resources\n", len(tmpl.Resources))
		return true
	}

	data, err := encodeTemplate(tmpl, opts.outputFormat)
	if err != nil {
		fmt.Fprintf(errOut, "Output error: %v\n", err)
		return false
	}
	if err := os.WriteFile(opts.outputFile, data, 0644); err != nil {
		fmt.Fprintf(errOut, "Failed to write output: %v\n", err)
		return false
	}
	fmt.Fprintf(out, "Synthesized %d resources, wrote %s\n", len(tmpl.Resources), opts.outputFile)
	return true
}
