package txexec

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"veloracloud/notify"
)

type fakeSession struct{ connected bool }

func (f *fakeSession) IsConnected() bool { return f.connected }

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (r *recordingNotifier) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *recordingNotifier) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.notifications...)
}

func TestExecuteRequiresConnection(t *testing.T) {
	sink := &recordingNotifier{}
	executor := NewExecutor(&fakeSession{connected: false}, sink)

	invoked := false
	err := executor.Execute(context.Background(), "Transfer", func(ctx context.Context) (*Pending, error) {
		invoked = true
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected NotConnected error")
	}
	if invoked {
		t.Fatal("thunk must not run while disconnected")
	}
	got := sink.all()
	if len(got) != 1 || got[0].Severity != notify.SeverityError {
		t.Fatalf("expected one error notification, got %+v", got)
	}
}

func TestExecuteSubmitFailureIsTerminal(t *testing.T) {
	sink := &recordingNotifier{}
	executor := NewExecutor(&fakeSession{connected: true}, sink)

	calls := 0
	boom := errors.New("insufficient funds")
	err := executor.Execute(context.Background(), "Stake", func(ctx context.Context) (*Pending, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected thunk error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
	got := sink.all()
	if len(got) != 1 || got[0].Title != "Transaction Failed" {
		t.Fatalf("unexpected notifications %+v", got)
	}
	if got[0].Message != "insufficient funds" {
		t.Fatalf("failure message must surface the thrown error, got %q", got[0].Message)
	}
}

func TestExecuteNotifiesSubmittedThenConfirmed(t *testing.T) {
	sink := &recordingNotifier{}
	executor := NewExecutor(&fakeSession{connected: true}, sink)

	source := &fakeReceipts{
		receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(5)},
	}
	hash := common.HexToHash("0xabc123")
	err := executor.Execute(context.Background(), "RentNode", func(ctx context.Context) (*Pending, error) {
		return NewPending(hash, source, WithPollInterval(time.Millisecond)), nil
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := sink.all()
	if len(got) != 2 {
		t.Fatalf("expected submitted+confirmed notifications, got %+v", got)
	}
	if got[0].Title != "Transaction Submitted" || got[0].TxHash != hash.Hex() {
		t.Fatalf("unexpected submitted notification %+v", got[0])
	}
	if got[1].Severity != notify.SeveritySuccess || got[1].Title != "Transaction Confirmed" {
		t.Fatalf("unexpected confirmed notification %+v", got[1])
	}
}

func TestExecuteNotifiesRevert(t *testing.T) {
	sink := &recordingNotifier{}
	executor := NewExecutor(&fakeSession{connected: true}, sink)

	source := &fakeReceipts{
		receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(5)},
	}
	err := executor.Execute(context.Background(), "Unstake", func(ctx context.Context) (*Pending, error) {
		return NewPending(testHash, source, WithPollInterval(time.Millisecond)), nil
	})
	if !errors.Is(err, ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
	got := sink.all()
	if len(got) != 2 {
		t.Fatalf("expected submitted+failed notifications, got %+v", got)
	}
	if got[1].Severity != notify.SeverityError {
		t.Fatalf("unexpected terminal notification %+v", got[1])
	}
}
