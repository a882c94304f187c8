package adapter

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgehunter/kernel/internal/clock"
	"github.com/edgehunter/kernel/internal/config"
	"github.com/edgehunter/kernel/internal/model"
	"github.com/edgehunter/kernel/internal/queue"
	"github.com/edgehunter/kernel/internal/telemetry/logging"
)

// clientIDCollisionCode is the broker error code for "another session is
// already using this client id" — the one condition spec.md requires the
// process to treat as fatal rather than retry.
const clientIDCollisionCode = "326"

var contractKeyRE = regexp.MustCompile(`^[A-Z0-9]+\.[0-9]{6}$`)

// MapMDMode normalizes the broker's integer market-data-type code. Type 4
// (delayed-frozen) maps to FROZEN, the conservative choice: treating it as
// DELAYED would understate how stale the data actually is.
func MapMDMode(brokerType int) model.MDMode {
	switch brokerType {
	case 1:
		return model.MDModeRealtime
	case 2:
		return model.MDModeFrozen
	case 3:
		return model.MDModeDelayed
	case 4:
		return model.MDModeFrozen
	default:
		return model.MDModeNone
	}
}

// Client abstracts the broker network session. A production binary wires in
// a real TCP/message-framing implementation; tests substitute a fake. This
// mirrors the reference adapter's separation between itself and the
// underlying callback-driven network client.
type Client interface {
	Connect(ctx context.Context, host string, port, clientID int) error
	IsConnected() bool
	Disconnect()
	RequestContractDetails(ctx context.Context, reqID int, c config.IBKRContract) (conID int64, err error)
	RequestMarketData(ctx context.Context, reqID int, conID int64) error
}

// IBKR is the live-feed adapter: connects with backoff, qualifies the
// explicit-expiry contract, subscribes to L1, and fails fast on a client-id
// collision rather than retrying into a broken session.
type IBKR struct {
	host     string
	port     int
	clientID int
	contract config.IBKRContract

	client  Client
	inbound *queue.Inbound
	clk     clock.Clock
	log     logging.Logger

	reconnect *ReconnectPolicy

	mu            sync.Mutex
	connected     bool
	mdMode        model.MDMode
	conID         *int64
	subscribed    bool
	nextReqID     int
	collision     atomic.Bool
	nextAttemptAt time.Time
}

// NewIBKR constructs an IBKR adapter. client must not be nil.
func NewIBKR(host string, port, clientID int, contract config.IBKRContract, client Client, inbound *queue.Inbound, clk clock.Clock, log logging.Logger) (*IBKR, error) {
	key := contract.ContractKey()
	if !contractKeyRE.MatchString(key) {
		return nil, fmt.Errorf("adapter: contract_key %q must be explicit expiry like MNQ.202603", key)
	}
	return &IBKR{
		host: host, port: port, clientID: clientID, contract: contract,
		client: client, inbound: inbound, clk: clk, log: log,
		reconnect: NewReconnectPolicy(),
		mdMode:    model.MDModeNone,
		nextReqID: 1,
	}, nil
}

// Connect performs the first connection attempt synchronously; ongoing
// reconnection after a later disconnect happens inside RunEventLoopIteration.
func (a *IBKR) Connect(ctx context.Context) error {
	return a.connectOnce(ctx)
}

func (a *IBKR) connectOnce(ctx context.Context) error {
	if err := a.client.Connect(ctx, a.host, a.port, a.clientID); err != nil {
		a.log.WarnCtx(ctx, "ibkr: connect failed", "error", err)
		return err
	}
	a.onConnected(ctx)
	return nil
}

func (a *IBKR) onConnected(ctx context.Context) {
	a.mu.Lock()
	already := a.connected
	a.connected = true
	a.mu.Unlock()
	if already {
		return
	}
	a.emitStatus(ctx, true, nil)
	a.qualifyContract(ctx)
}

// Disconnect tears down the broker session and emits the disconnected
// status event.
func (a *IBKR) Disconnect() {
	ctx := context.Background()
	a.client.Disconnect()
	a.mu.Lock()
	a.connected = false
	a.mdMode = model.MDModeNone
	a.subscribed = false
	a.mu.Unlock()
	a.emitStatus(ctx, false, nil)
}

// RunEventLoopIteration drives one step of the connect/reconnect/subscribe
// state machine. It never blocks on the network beyond what Client.Connect
// itself blocks for.
func (a *IBKR) RunEventLoopIteration(ctx context.Context) error {
	if a.collision.Load() {
		return &FatalError{Code: 1, Message: "ibkr: client id collision, adapter stopped"}
	}

	if a.client.IsConnected() {
		a.subscribeIfNeeded(ctx)
		return nil
	}

	now := time.Unix(0, a.clk.NowMonoNS())
	if !a.reconnect.CanAttempt(now) || now.Before(a.nextAttemptAt) {
		return nil
	}
	if err := a.connectOnce(ctx); err != nil {
		delay := a.reconnect.RecordFailure(now)
		a.nextAttemptAt = now.Add(delay)
		return nil
	}
	a.reconnect.RecordSuccess()
	a.nextAttemptAt = time.Time{}
	return nil
}

func (a *IBKR) qualifyContract(ctx context.Context) {
	reqID := a.next()
	conID, err := a.client.RequestContractDetails(ctx, reqID, a.contract)
	if err != nil || conID == 0 {
		a.emitError(ctx, "NO_CONTRACT", fmt.Sprintf("contract qualification failed: %s", a.contract.ContractKey()))
		return
	}
	a.mu.Lock()
	a.conID = &conID
	a.mu.Unlock()
	cid := conID
	a.inbound.Push(model.NewQuoteEvent(model.QuoteEvent{
		RecvWallMS: a.clk.NowWallMS(),
		RecvMonoNS: a.clk.NowMonoNS(),
		ConID:      &cid,
	}))
}

func (a *IBKR) subscribeIfNeeded(ctx context.Context) {
	a.mu.Lock()
	conID := a.conID
	already := a.subscribed
	a.mu.Unlock()
	if conID == nil || already {
		return
	}
	reqID := a.next()
	if err := a.client.RequestMarketData(ctx, reqID, *conID); err != nil {
		a.emitError(ctx, "SUBSCRIBE_FAILED", err.Error())
		return
	}
	a.mu.Lock()
	a.subscribed = true
	a.mu.Unlock()
}

func (a *IBKR) next() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextReqID
	a.nextReqID++
	return id
}

// OnBrokerError is called by the Client implementation's callback handling
// when the broker reports an error for this session. errorCode 326 (client
// id already in use) is treated as fatal: the adapter stops retrying and the
// next RunEventLoopIteration returns a FatalError for the runner to surface.
func (a *IBKR) OnBrokerError(ctx context.Context, errorCode, message string) {
	a.emitError(ctx, errorCode, message)
	if errorCode == clientIDCollisionCode {
		a.log.ErrorCtx(ctx, "ibkr: client id collision, stopping", "message", message)
		a.collision.Store(true)
	}
}

// OnMarketDataType is called by the Client implementation when the broker
// reports a market-data-type change for this session.
func (a *IBKR) OnMarketDataType(ctx context.Context, brokerType int) {
	mode := MapMDMode(brokerType)
	a.mu.Lock()
	a.mdMode = mode
	a.mu.Unlock()
	a.emitStatus(ctx, true, nil)
}

func (a *IBKR) emitStatus(ctx context.Context, connected bool, reason *string) {
	a.mu.Lock()
	mode := a.mdMode
	a.mu.Unlock()
	a.inbound.Push(model.NewStatusEvent(model.StatusEvent{
		RecvWallMS: a.clk.NowWallMS(),
		RecvMonoNS: a.clk.NowMonoNS(),
		Connected:  connected,
		MDMode:     mode,
		Reason:     reason,
	}))
}

func (a *IBKR) emitError(ctx context.Context, code, message string) {
	a.log.WarnCtx(ctx, "ibkr: adapter error", "code", code, "message", message)
	a.inbound.Push(model.NewAdapterErrorEvent(model.AdapterErrorEvent{
		RecvWallMS: a.clk.NowWallMS(),
		RecvMonoNS: a.clk.NowMonoNS(),
		ErrorCode:  code,
		Message:    message,
	}))
}
