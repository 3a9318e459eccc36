package message

import (
	"testing"
	"time"

	"github.com/marmos91/dittofs/internal/rtps/parameterlist"
	"github.com/marmos91/dittofs/internal/rtps/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader() Header {
	return Header{
		Version:    ProtocolVersion24,
		Vendor:     VendorIdThisImplementation,
		GuidPrefix: types.GuidPrefix{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}
}

func TestDataSubmessageRoundTrip(t *testing.T) {
	pl := parameterlist.ParameterList{Parameters: []parameterlist.Parameter{
		{PID: parameterlist.PIDTopicName, Value: []byte("Square\x00")},
	}}
	d := Data{
		ReaderId:          types.EntityIdUnknown,
		WriterId:          types.EntityId{EntityKey: [3]byte{1, 0, 0}, Kind: types.EntityKindUserWriterNoKey},
		WriterSN:          42,
		InlineQos:         &pl,
		SerializedPayload: []byte{0xCA, 0xFE, 0xBA, 0xBE},
	}
	msg := Message{Header: testHeader(), Submessages: []Submessage{
		{Header: SubmessageHeader{Kind: KindData}, Data: &d},
	}}
	buf, err := Encode(msg)
	require.NoError(t, err)

	back, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, back.Submessages, 1)
	got := back.Submessages[0].Data
	require.NotNil(t, got)
	assert.Equal(t, d.WriterId, got.WriterId)
	assert.Equal(t, d.WriterSN, got.WriterSN)
	assert.Equal(t, d.SerializedPayload, got.SerializedPayload)
	require.NotNil(t, got.InlineQos)
	v, ok := got.InlineQos.Get(parameterlist.PIDTopicName)
	require.True(t, ok)
	// Parameter values keep their padding to a 4-octet boundary.
	assert.Equal(t, []byte("Square\x00\x00"), v)
}

func TestHeartbeatAckNackRoundTrip(t *testing.T) {
	hb := Heartbeat{
		ReaderId: types.EntityIdUnknown,
		WriterId: types.EntityId{EntityKey: [3]byte{1, 0, 0}, Kind: types.EntityKindUserWriterNoKey},
		FirstSN:  1,
		LastSN:   10,
		Count:    3,
		Final:    true,
	}
	an := AckNack{
		ReaderId:      types.EntityId{EntityKey: [3]byte{2, 0, 0}, Kind: types.EntityKindUserReaderNoKey},
		WriterId:      hb.WriterId,
		ReaderSNState: SequenceNumberSet{Base: 2, Members: []types.SequenceNumber{3, 5, 7}},
		Count:         1,
		Final:         true,
	}
	msg := Message{Header: testHeader(), Submessages: []Submessage{
		{Header: SubmessageHeader{Kind: KindHeartbeat}, Heartbeat: &hb},
		{Header: SubmessageHeader{Kind: KindAckNack, Flags: flagEndianness}, AckNack: &an},
	}}
	buf, err := Encode(msg)
	require.NoError(t, err)

	back, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, back.Submessages, 2)
	assert.Equal(t, hb, *back.Submessages[0].Heartbeat)
	assert.ElementsMatch(t, an.ReaderSNState.Members, back.Submessages[1].AckNack.ReaderSNState.Members)
	assert.Equal(t, an.Count, back.Submessages[1].AckNack.Count)
}

func TestGapRoundTrip(t *testing.T) {
	g := Gap{
		ReaderId: types.EntityIdUnknown,
		WriterId: types.EntityId{EntityKey: [3]byte{1, 0, 0}, Kind: types.EntityKindUserWriterNoKey},
		First:    5,
		Set:      SequenceNumberSet{Base: 8, Members: []types.SequenceNumber{8, 9}},
	}
	msg := Message{Header: testHeader(), Submessages: []Submessage{
		{Header: SubmessageHeader{Kind: KindGap}, Gap: &g},
	}}
	buf, err := Encode(msg)
	require.NoError(t, err)
	back, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, g.First, back.Submessages[0].Gap.First)
	assert.ElementsMatch(t, g.Set.Members, back.Submessages[0].Gap.Set.Members)
}

func TestInfoTsRoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 500000000)
	info := InfoTs{Timestamp: ts}
	msg := Message{Header: testHeader(), Submessages: []Submessage{
		{Header: SubmessageHeader{Kind: KindInfoTs}, InfoTs: &info},
	}}
	buf, err := Encode(msg)
	require.NoError(t, err)
	back, err := Decode(buf)
	require.NoError(t, err)
	assert.WithinDuration(t, ts, back.Submessages[0].InfoTs.Timestamp, time.Second)
}

func TestInfoTsInvalidateCarriesNoPayload(t *testing.T) {
	info := InfoTs{Invalidate: true}
	msg := Message{Header: testHeader(), Submessages: []Submessage{
		{Header: SubmessageHeader{Kind: KindInfoTs}, InfoTs: &info},
	}}
	buf, err := Encode(msg)
	require.NoError(t, err)
	back, err := Decode(buf)
	require.NoError(t, err)
	assert.True(t, back.Submessages[0].InfoTs.Invalidate)
}

func TestEmptyMessageIsHeaderOnly(t *testing.T) {
	msg := Message{Header: testHeader()}
	buf, err := Encode(msg)
	require.NoError(t, err)
	assert.Len(t, buf, 20)
	back, err := Decode(buf)
	require.NoError(t, err)
	assert.Empty(t, back.Submessages)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 20)
	copy(buf, []byte("XXXX"))
	_, err := Decode(buf)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestDecodeRejectsOverrunLength(t *testing.T) {
	msg := Message{Header: testHeader()}
	buf, err := Encode(msg)
	require.NoError(t, err)
	// Append a submessage header claiming more length than remains.
	buf = append(buf, byte(KindData), 0x00, 0xFF, 0xFF)
	_, err = Decode(buf)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestNackFragHeartbeatFragRoundTrip(t *testing.T) {
	nf := NackFrag{
		ReaderId:    types.EntityId{EntityKey: [3]byte{2, 0, 0}, Kind: types.EntityKindUserReaderNoKey},
		WriterId:    types.EntityId{EntityKey: [3]byte{1, 0, 0}, Kind: types.EntityKindUserWriterNoKey},
		WriterSN:    7,
		FragmentSet: FragmentNumberSet{Base: 1, Members: []uint32{1, 2, 4}},
		Count:       1,
	}
	hf := HeartbeatFrag{
		ReaderId:    nf.ReaderId,
		WriterId:    nf.WriterId,
		WriterSN:    7,
		LastFragNum: 4,
		Count:       1,
	}
	msg := Message{Header: testHeader(), Submessages: []Submessage{
		{Header: SubmessageHeader{Kind: KindNackFrag}, NackFrag: &nf},
		{Header: SubmessageHeader{Kind: KindHeartbeatFrag}, HeartbeatFrag: &hf},
	}}
	buf, err := Encode(msg)
	require.NoError(t, err)
	back, err := Decode(buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, nf.FragmentSet.Members, back.Submessages[0].NackFrag.FragmentSet.Members)
	assert.Equal(t, hf.LastFragNum, back.Submessages[1].HeartbeatFrag.LastFragNum)
}

func TestDataFragRoundTrip(t *testing.T) {
	df := DataFrag{
		ReaderId:              types.EntityIdUnknown,
		WriterId:              types.EntityId{EntityKey: [3]byte{1, 0, 0}, Kind: types.EntityKindUserWriterNoKey},
		WriterSN:              3,
		FragmentStartingNum:   1,
		FragmentsInSubmessage: 1,
		FragmentSize:          1344,
		SampleSize:            2000,
		SerializedPayload:     []byte{1, 2, 3, 4, 5},
	}
	msg := Message{Header: testHeader(), Submessages: []Submessage{
		{Header: SubmessageHeader{Kind: KindDataFrag}, DataFrag: &df},
	}}
	buf, err := Encode(msg)
	require.NoError(t, err)
	back, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, df.SampleSize, back.Submessages[0].DataFrag.SampleSize)
	assert.Equal(t, df.SerializedPayload, back.Submessages[0].DataFrag.SerializedPayload)
}
