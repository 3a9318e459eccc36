package qos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckCompatibleReliabilityMismatch(t *testing.T) {
	offered := Default()
	offered.Reliability = Reliability{Kind: ReliabilityBestEffort}
	requested := Default()
	requested.Reliability = Reliability{Kind: ReliabilityReliable}

	failures := CheckCompatible(offered, requested)
	assert.Len(t, failures, 1)
	assert.Equal(t, "Reliability", failures[0].PolicyID)
}

func TestCheckCompatibleReliableOfferedSatisfiesBestEffortRequest(t *testing.T) {
	offered := Default()
	offered.Reliability = Reliability{Kind: ReliabilityReliable}
	requested := Default()
	requested.Reliability = Reliability{Kind: ReliabilityBestEffort}

	assert.Empty(t, CheckCompatible(offered, requested))
}

func TestPartitionExactMatch(t *testing.T) {
	assert.True(t, partitionsMatch(Partition{Names: []string{"A"}}, Partition{Names: []string{"A"}}))
	assert.False(t, partitionsMatch(Partition{Names: []string{"A"}}, Partition{Names: []string{"B"}}))
}

func TestPartitionGlobMatch(t *testing.T) {
	assert.True(t, partitionsMatch(Partition{Names: []string{"Group*"}}, Partition{Names: []string{"GroupA"}}))
	assert.False(t, partitionsMatch(Partition{Names: []string{"Group?"}}, Partition{Names: []string{"GroupAB"}}))
}

func TestPartitionEmptyBothSidesMatchesDefault(t *testing.T) {
	assert.True(t, partitionsMatch(Partition{}, Partition{}))
}

func TestDataRepresentationIntersection(t *testing.T) {
	assert.True(t, representationsIntersect(DataRepresentation{IDs: []int16{0, 2}}, DataRepresentation{IDs: []int16{2}}))
	assert.False(t, representationsIntersect(DataRepresentation{IDs: []int16{2}}, DataRepresentation{IDs: []int16{3}}))
}

func TestCheckCompatibleDeadlineRequiresOfferedAtLeastAsTight(t *testing.T) {
	offered := Default()
	requested := Default()
	requested.Deadline.Period = 1
	// offered has no deadline (0 == infinite) while requested bounds one: incompatible.
	failures := CheckCompatible(offered, requested)
	assert.Len(t, failures, 1)
	assert.Equal(t, "Deadline", failures[0].PolicyID)
}
