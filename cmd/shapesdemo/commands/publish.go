package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittofs/internal/logger"
	"github.com/marmos91/dittofs/pkg/dds"
)

var (
	publishReliable bool
	publishPeriod   time.Duration
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a moving colored square on the Square topic",
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishReliable, "reliable", false, "use Reliable instead of BestEffort delivery")
	publishCmd.Flags().DurationVar(&publishPeriod, "period", 200*time.Millisecond, "time between writes")
}

func runPublish(cmd *cobra.Command, args []string) error {
	dp, topic, err := bootstrap(domainID)
	if err != nil {
		return err
	}
	defer dp.Close()

	qosBuilder := dds.NewQosBuilder()
	if publishReliable {
		qosBuilder.Reliable(5 * time.Second)
	} else {
		qosBuilder.BestEffort()
	}

	pub, err := dp.CreatePublisher(dds.DefaultQos())
	if err != nil {
		return err
	}
	dw, err := pub.CreateDataWriter(topic, qosBuilder.Build())
	if err != nil {
		return err
	}

	shape := ShapeType{Color: shapeColor, X: canvasWidth / 2, Y: canvasHeight / 2, ShapeSize: 30}
	dx, dy := int32(3), int32(2)

	ticker := time.NewTicker(publishPeriod)
	defer ticker.Stop()
	for range ticker.C {
		shape.X, dx = bounce(shape.X, dx, canvasWidth, shape.ShapeSize)
		shape.Y, dy = bounce(shape.Y, dy, canvasHeight, shape.ShapeSize)

		ctx, cancel := context.WithTimeout(context.Background(), publishPeriod)
		sn, err := dw.Write(ctx, &shape)
		cancel()
		if err != nil {
			logger.Warnf("shapesdemo: write failed: %v", err)
			continue
		}
		logger.Debugf("shapesdemo: wrote sn=%d color=%s x=%d y=%d", sn, shape.Color, shape.X, shape.Y)
	}
	return nil
}

func bounce(pos, delta int32, bound, size int32) (int32, int32) {
	pos += delta
	if pos-size/2 < 0 || pos+size/2 > bound {
		delta = -delta
		pos += 2 * delta
	}
	return pos, delta
}
