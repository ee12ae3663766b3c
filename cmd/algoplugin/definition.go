package main

import (
	"fmt"
	"strings"

	"github.com/LdDl/algo-plugin-go/plugin"
	"github.com/LdDl/algo-plugin-go/plugins"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

func newDefinitionCommand() *cobra.Command {
	var overrides []string
	cmd := &cobra.Command{
		Use:   "definition <plugin>",
		Short: "Print plugin definition with current property values",
		Example: `  algoplugin definition score_filter --set threshold=0.8
  algoplugin definition label_filter --set 'labels=["car","bus"]'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plugins.New(args[0])
			if err != nil {
				return err
			}
			values, err := parseOverrides(overrides)
			if err != nil {
				return err
			}
			if err := plugin.SetProperties(p, values); err != nil {
				return err
			}
			data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(p.Definition(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "property override name=json, repeatable. Values which are not JSON are taken as strings")
	return cmd
}

// parseOverrides turns name=json pairs into values
func parseOverrides(pairs []string) (map[string]plugin.Value, error) {
	values := make(map[string]plugin.Value, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("override %q must look like name=value", pair)
		}
		v, err := plugin.ParseValue([]byte(raw))
		if err != nil {
			v = plugin.String(raw)
		}
		values[name] = v
	}
	return values, nil
}
