package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/marmos91/dittofs/internal/logger"
	"github.com/marmos91/dittofs/pkg/dds"
)

var subscribePeriod time.Duration

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Subscribe to the Square topic and render received shapes",
	RunE:  runSubscribe,
}

func init() {
	subscribeCmd.Flags().DurationVar(&subscribePeriod, "period", 500*time.Millisecond, "time between take polls")
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	dp, topic, err := bootstrap(domainID)
	if err != nil {
		return err
	}
	defer dp.Close()

	sub, err := dp.CreateSubscriber(dds.DefaultQos())
	if err != nil {
		return err
	}
	dr, err := sub.CreateDataReader(topic, dds.NewQosBuilder().BestEffort().Build())
	if err != nil {
		return err
	}

	start := time.Now()
	ticker := time.NewTicker(subscribePeriod)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), subscribePeriod)
		samples, err := dr.Take(ctx)
		cancel()
		if err != nil {
			logger.Warnf("shapesdemo: take failed: %v", err)
			continue
		}
		if len(samples) == 0 {
			continue
		}
		renderShapes(samples, time.Since(start))
	}
	return nil
}

func renderShapes(samples []dds.Sample, elapsed time.Duration) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"COLOR", "X", "Y", "SIZE", "STATE", "AGE"})
	table.SetAutoFormatHeaders(true)
	table.SetBorder(false)

	for _, s := range samples {
		if !s.ValidData {
			table.Append([]string{"-", "-", "-", "-", shapeState(s), humanize.Time(time.Now().Add(-elapsed))})
			continue
		}
		shape, ok := s.Value.(*ShapeType)
		if !ok {
			continue
		}
		table.Append([]string{
			shape.Color,
			fmt.Sprintf("%d", shape.X),
			fmt.Sprintf("%d", shape.Y),
			fmt.Sprintf("%d", shape.ShapeSize),
			shapeState(s),
			humanize.Time(time.Now().Add(-elapsed)),
		})
	}
	table.Render()
}

func shapeState(s dds.Sample) string {
	if s.ValidData {
		return "ALIVE"
	}
	return "DISPOSED"
}
