package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/joshuapare/cdskit/internal/bootstrap"
)

func init() {
	rootCmd.AddCommand(newStatsCmd())
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pool occupancy and store metrics",
		Long: `The stats command boots the store and shows per-class occupancy of the
block pool followed by the metrics recorded during this run.

Example:
  cdsctl stats
  cdsctl stats --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func runStats() error {
	return bootstrap.Run(flags(), func(s *bootstrap.Session) error {
		st := s.Store.Stats()
		families, err := s.Metrics.Gather()
		if err != nil {
			return fmt.Errorf("failed to gather metrics: %w", err)
		}

		if jsonOut {
			return printJSON(map[string]interface{}{
				"store":   st,
				"metrics": metricValues(families),
			})
		}
		if quiet {
			return nil
		}

		p := st.Pool
		fmt.Printf("Pool: %d used blocks (%s), %d free blocks (%s), %s unallocated\n",
			p.UsedBlocks, formatBytes(p.UsedBytes), p.FreeBlocks, formatBytes(p.FreeBytes), formatBytes(uint64(p.Unallocated)))
		if p.DiscardedLists > 0 || p.AbandonedBytes > 0 {
			fmt.Printf("Lost: %d discarded free lists, %s abandoned\n", p.DiscardedLists, formatBytes(p.AbandonedBytes))
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "CLASS\tFREE\t")
		for _, c := range p.PerClass {
			fmt.Fprintf(tw, "%d\t%d\t\n", c.Size, c.Free)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Println()
		for _, mv := range metricValues(families) {
			fmt.Printf("%s %g\n", mv.Name, mv.Value)
		}
		return nil
	})
}

type metricValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// metricValues flattens gathered counters and gauges into name{labels} pairs.
func metricValues(families []*dto.MetricFamily) []metricValue {
	var out []metricValue
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var v float64
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				v = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				v = m.GetGauge().GetValue()
			default:
				continue
			}
			name := mf.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				pairs := make([]string, len(labels))
				for i, l := range labels {
					pairs[i] = fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
				}
				name += "{" + strings.Join(pairs, ",") + "}"
			}
			out = append(out, metricValue{Name: name, Value: v})
		}
	}
	return out
}
