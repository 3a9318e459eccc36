package status

import "testing"

func TestReadResetsChangeNotTotal(t *testing.T) {
	s := NewSet()
	s.NotifySampleLost()
	s.NotifySampleLost()

	got := s.ReadSampleLost()
	if got.TotalCount != 2 || got.TotalCountChange != 2 {
		t.Fatalf("got %+v, want total=2 change=2", got)
	}

	got = s.ReadSampleLost()
	if got.TotalCount != 2 || got.TotalCountChange != 0 {
		t.Fatalf("second read got %+v, want total=2 change=0", got)
	}
}

func TestTriggerValueTracksEnabledMask(t *testing.T) {
	s := NewSet()
	s.SetEnabledStatuses(KindSampleLost)

	s.NotifySampleLost()
	s.NotifyLivelinessLost()

	if s.TriggerValue() != KindSampleLost {
		t.Fatalf("trigger value = %v, want only KindSampleLost (LivelinessLost not enabled)", s.TriggerValue())
	}

	s.ReadSampleLost()
	if s.TriggerValue() != 0 {
		t.Fatalf("trigger value after read = %v, want 0", s.TriggerValue())
	}
}

func TestMatchedStatusTracksCurrentCount(t *testing.T) {
	s := NewSet()
	s.NotifyMatched(KindPublicationMatched, 1)
	s.NotifyMatched(KindPublicationMatched, 2)

	got := s.ReadPublicationMatched()
	if got.TotalCount != 2 || got.CurrentCount != 2 {
		t.Fatalf("got %+v, want total=2 current=2", got)
	}
}
