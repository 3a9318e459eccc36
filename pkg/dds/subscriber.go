package dds

import "context"

// Subscriber groups a set of DataReaders that share a default QoS (§6
// create_subscriber).
type Subscriber struct {
	dp      *DomainParticipant
	qos     Qos
	readers []*DataReader
}

// CreateDataReader attaches a new DataReader to topic, using q as its
// QoS (§6 create_datareader).
func (s *Subscriber) CreateDataReader(topic *Topic, q Qos) (*DataReader, error) {
	if err := s.dp.requireEnabled(); err != nil {
		return nil, err
	}
	guid, err := s.dp.core.CreateReader(context.Background(), topic.name, topic.typeName, topic.ts, q)
	if err != nil {
		return nil, newError(ErrorCode, "create reader: %v", err)
	}
	dr := &DataReader{sub: s, topic: topic, guid: guid, qos: q, enabled: true}
	s.readers = append(s.readers, dr)
	return dr, nil
}

// DeleteDataReader detaches and destroys dr (§6 delete_datareader).
func (s *Subscriber) DeleteDataReader(dr *DataReader) error {
	if err := s.dp.core.DeleteEndpoint(context.Background(), dr.guid); err != nil {
		return newError(ErrorCode, "delete reader: %v", err)
	}
	for i, r := range s.readers {
		if r == dr {
			s.readers = append(s.readers[:i], s.readers[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteContainedEntities deletes every DataReader this Subscriber owns
// (§6 delete_contained_entities).
func (s *Subscriber) DeleteContainedEntities() error {
	for _, dr := range append([]*DataReader(nil), s.readers...) {
		if err := s.DeleteDataReader(dr); err != nil {
			return err
		}
	}
	return nil
}
