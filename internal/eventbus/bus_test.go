package eventbus

import "testing"

func TestPublish_AssignsMonotonicPerSessionSeq(t *testing.T) {
	b := New()
	sub := b.Subscribe()

	b.Publish(Event{Kind: KindSessionStateChanged, SessionID: "s1"})
	b.Publish(Event{Kind: KindSessionStateChanged, SessionID: "s1"})
	b.Publish(Event{Kind: KindSessionStateChanged, SessionID: "s2"})

	first := <-sub.Events()
	second := <-sub.Events()
	third := <-sub.Events()

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("expected seq 1,2 for s1, got %d,%d", first.Seq, second.Seq)
	}
	if third.Seq != 1 {
		t.Fatalf("expected seq 1 for s2 (independent counter), got %d", third.Seq)
	}
}

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	b := New()
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()

	b.Publish(Event{Kind: KindSessionCreated, SessionID: "s1"})

	if _, ok := <-sub1.Events(); !ok {
		t.Fatal("sub1 did not receive event")
	}
	if _, ok := <-sub2.Events(); !ok {
		t.Fatal("sub2 did not receive event")
	}
}

func TestSubscription_DropsOldestOnOverflow(t *testing.T) {
	b := New()
	sub := b.Subscribe()

	for i := 0; i < smallQueueSize+10; i++ {
		b.Publish(Event{Kind: KindSessionData, SessionID: "s1"})
	}

	if sub.Dropped() == 0 {
		t.Fatal("expected some events to be dropped on overflow")
	}
	if len(sub.ch) != smallQueueSize {
		t.Fatalf("expected queue full at capacity %d, got %d", smallQueueSize, len(sub.ch))
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Unsubscribe(sub)

	_, ok := <-sub.Events()
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestSubscribeSessionData_LargerQueue(t *testing.T) {
	b := New()
	sub := b.SubscribeSessionData()
	if cap(sub.ch) != dataQueueSize {
		t.Fatalf("expected session_data subscription capacity %d, got %d", dataQueueSize, cap(sub.ch))
	}
}
