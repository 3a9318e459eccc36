package dds

import "context"

// Publisher groups a set of DataWriters and keeps the QoS it was created
// with (§6 create_publisher); each DataWriter takes the QoS passed to
// CreateDataWriter.
type Publisher struct {
	dp      *DomainParticipant
	qos     Qos
	writers []*DataWriter
}

// CreateDataWriter attaches a new DataWriter to topic, using q as its
// QoS (§6 create_datawriter).
func (p *Publisher) CreateDataWriter(topic *Topic, q Qos) (*DataWriter, error) {
	if err := p.dp.requireEnabled(); err != nil {
		return nil, err
	}
	guid, err := p.dp.core.CreateWriter(context.Background(), topic.name, topic.typeName, topic.ts, q)
	if err != nil {
		return nil, newError(ErrorCode, "create writer: %v", err)
	}
	dw := &DataWriter{pub: p, topic: topic, guid: guid, qos: q, enabled: true}
	p.writers = append(p.writers, dw)
	return dw, nil
}

// DeleteDataWriter detaches and destroys dw (§6 delete_datawriter).
func (p *Publisher) DeleteDataWriter(dw *DataWriter) error {
	if err := p.dp.core.DeleteEndpoint(context.Background(), dw.guid); err != nil {
		return newError(ErrorCode, "delete writer: %v", err)
	}
	for i, w := range p.writers {
		if w == dw {
			p.writers = append(p.writers[:i], p.writers[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteContainedEntities deletes every DataWriter this Publisher owns
// (§6 delete_contained_entities).
func (p *Publisher) DeleteContainedEntities() error {
	for _, dw := range append([]*DataWriter(nil), p.writers...) {
		if err := p.DeleteDataWriter(dw); err != nil {
			return err
		}
	}
	return nil
}
