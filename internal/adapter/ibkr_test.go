package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgehunter/kernel/internal/clock"
	"github.com/edgehunter/kernel/internal/config"
	"github.com/edgehunter/kernel/internal/queue"
	"github.com/edgehunter/kernel/internal/telemetry/logging"
)

type fakeClient struct {
	connected     bool
	connectErr    error
	contractConID int64
	contractErr   error
	mktDataErr    error
}

func (f *fakeClient) Connect(ctx context.Context, host string, port, clientID int) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}
func (f *fakeClient) IsConnected() bool { return f.connected }
func (f *fakeClient) Disconnect()       { f.connected = false }
func (f *fakeClient) RequestContractDetails(ctx context.Context, reqID int, c config.IBKRContract) (int64, error) {
	return f.contractConID, f.contractErr
}
func (f *fakeClient) RequestMarketData(ctx context.Context, reqID int, conID int64) error {
	return f.mktDataErr
}

func testContract() config.IBKRContract {
	return config.IBKRContract{Symbol: "MNQ", Expiry: "202603", Exchange: "CME", Currency: "USD", SecType: "FUT"}
}

func TestIBKR_ConnectQualifiesAndSubscribes(t *testing.T) {
	fc := &fakeClient{contractConID: 555}
	inbound := queue.NewInbound(10)
	a, err := NewIBKR("127.0.0.1", 7497, 1, testContract(), fc, inbound, clock.NewFakeClock(time.Now()), logging.New(nil))
	require.NoError(t, err)

	require.NoError(t, a.Connect(context.Background()))
	require.NoError(t, a.RunEventLoopIteration(context.Background()))

	events := inbound.Drain()
	require.GreaterOrEqual(t, len(events), 2)
	assert.NotNil(t, events[0].Status)
	assert.True(t, events[0].Status.Connected)
}

func TestIBKR_RejectsImplicitExpiryContractKey(t *testing.T) {
	fc := &fakeClient{}
	inbound := queue.NewInbound(10)
	bad := config.IBKRContract{Symbol: "MNQ", Expiry: "abc"}
	_, err := NewIBKR("127.0.0.1", 7497, 1, bad, fc, inbound, clock.NewFakeClock(time.Now()), logging.New(nil))
	assert.Error(t, err)
}

func TestIBKR_ClientIDCollisionIsFatal(t *testing.T) {
	fc := &fakeClient{contractConID: 555}
	inbound := queue.NewInbound(10)
	a, err := NewIBKR("127.0.0.1", 7497, 1, testContract(), fc, inbound, clock.NewFakeClock(time.Now()), logging.New(nil))
	require.NoError(t, err)
	require.NoError(t, a.Connect(context.Background()))

	a.OnBrokerError(context.Background(), "326", "client id already in use")

	err = a.RunEventLoopIteration(context.Background())
	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, 1, fatal.Code)
}

func TestIBKR_ReconnectHonorsExponentialBackoffDelay(t *testing.T) {
	fc := &fakeClient{connectErr: errors.New("refused")}
	inbound := queue.NewInbound(10)
	clk := clock.NewFakeClock(time.Now())
	a, err := NewIBKR("127.0.0.1", 7497, 1, testContract(), fc, inbound, clk, logging.New(nil))
	require.NoError(t, err)

	require.NoError(t, a.RunEventLoopIteration(context.Background()))
	assert.False(t, fc.connected, "first attempt fails")

	fc.connectErr = nil
	require.NoError(t, a.RunEventLoopIteration(context.Background()))
	assert.False(t, fc.connected, "retry within the backoff window must not attempt again")

	clk.Advance(2 * time.Second)
	require.NoError(t, a.RunEventLoopIteration(context.Background()))
	assert.True(t, fc.connected, "retry once the backoff delay has elapsed should succeed")
}

func TestIBKR_ContractQualificationFailureEmitsNoContractError(t *testing.T) {
	fc := &fakeClient{contractConID: 0}
	inbound := queue.NewInbound(10)
	a, err := NewIBKR("127.0.0.1", 7497, 1, testContract(), fc, inbound, clock.NewFakeClock(time.Now()), logging.New(nil))
	require.NoError(t, err)
	require.NoError(t, a.Connect(context.Background()))

	found := false
	for _, e := range inbound.Drain() {
		if e.AdapterError != nil && e.AdapterError.ErrorCode == "NO_CONTRACT" {
			found = true
		}
	}
	assert.True(t, found)
}
