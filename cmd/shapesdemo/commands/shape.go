package commands

import (
	"fmt"
	"net"

	"github.com/marmos91/dittofs/pkg/dds"
)

// ShapeType mirrors the DDS Shapes demo's ShapeType: a colored square
// bouncing around a fixed-size canvas (§8 scenario 1).
type ShapeType struct {
	Color     string `dds:"key"`
	X         int32
	Y         int32
	ShapeSize int32
}

const (
	canvasWidth  = 240
	canvasHeight = 240
)

// bootstrap creates and enables a DomainParticipant on domainID and
// creates the Square topic on it, the shared setup both publish and
// subscribe need before creating their Publisher or Subscriber.
func bootstrap(domainID int) (*dds.DomainParticipant, *dds.Topic, error) {
	cfg := dds.ParticipantConfig{DomainTag: processConf.DomainTag}
	if processConf.InterfaceName != "" {
		iface, err := net.InterfaceByName(processConf.InterfaceName)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve interface %q: %w", processConf.InterfaceName, err)
		}
		cfg.Interface = iface
	}

	dp, err := dds.TheParticipantFactory().CreateParticipant(domainID, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create participant: %w", err)
	}
	if err := dp.Enable(); err != nil {
		return nil, nil, fmt.Errorf("enable participant: %w", err)
	}

	ts, err := dds.NewStructTypeSupport("ShapeType", ShapeType{})
	if err != nil {
		return nil, nil, fmt.Errorf("build ShapeType support: %w", err)
	}
	topic, err := dp.CreateTopic("Square", "ShapeType", ts)
	if err != nil {
		return nil, nil, fmt.Errorf("create topic: %w", err)
	}
	return dp, topic, nil
}
