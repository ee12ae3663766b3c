package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/LdDl/algo-plugin-go/pipeline"
	"github.com/LdDl/algo-plugin-go/plugin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// frames of dense segmentation masks do not fit default scanner buffer
const maxFrameSize = 64 * 1024 * 1024

func newRunCommand(global *globalOptions) *cobra.Command {
	var (
		configPath string
		inputPath  string
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run plugin chain over frames given as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := pipeline.LoadConfig(configPath)
			if err != nil {
				return err
			}
			chain, err := pipeline.BuildChain(cfg, global.logger)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if inputPath != "" && inputPath != "-" {
				file, err := os.Open(inputPath)
				if err != nil {
					return err
				}
				defer file.Close()
				in = file
			}
			out := cmd.OutOrStdout()
			if outputPath != "" && outputPath != "-" {
				file, createErr := os.Create(outputPath)
				if createErr != nil {
					return createErr
				}
				defer func() {
					if closeErr := file.Close(); closeErr != nil && err == nil {
						err = fmt.Errorf("close %s: %w", outputPath, closeErr)
					}
				}()
				out = file
			}

			err = runFrames(cmd, chain, in, out)
			for _, stats := range chain.Stats() {
				global.logger.WithFields(logrus.Fields{
					"plugin":    stats.Name,
					"processed": stats.Processed,
					"skipped":   stats.Skipped,
					"failed":    stats.Failed,
				}).Info("Plugin stats")
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "chain file (.json)")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "frames file, stdin when '-'")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "-", "results file, stdout when '-'")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runFrames(cmd *cobra.Command, chain *pipeline.Chain, in io.Reader, out io.Writer) (err error) {
	ctx := cmd.Context()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	writer := bufio.NewWriter(out)
	// frames already written are kept when a later one fails
	defer func() {
		if flushErr := writer.Flush(); flushErr != nil && err == nil {
			err = fmt.Errorf("flush output: %w", flushErr)
		}
	}()

	frame := 0
	for scanner.Scan() {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		frame++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		objects, err := plugin.UnmarshalObjects(line)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		result, err := chain.Frame(objects)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		data, err := plugin.MarshalObjects(result)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		if _, err := writer.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return scanner.Err()
}
