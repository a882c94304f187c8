// Package config resolves the process's environment-driven configuration:
// which feed to run (§6), the IBKR connection/contract parameters, process
// runtime bounds, and the optional tunables file (ambient addition).
package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/edgehunter/kernel/internal/telemetry/logging"
)

// FeedType selects which adapter implementation to run.
type FeedType string

const (
	FeedMock FeedType = "MOCK"
	FeedIBKR FeedType = "IBKR"
)

// ResolveFeedType applies spec.md §6's precedence: FEED_TYPE, then
// EDGEHUNTER_FEED, then MOCK; invalid values fall back to MOCK with a warning.
func ResolveFeedType(log logging.Logger) FeedType {
	raw := strings.ToUpper(strings.TrimSpace(os.Getenv("FEED_TYPE")))
	if raw == "" {
		raw = strings.ToUpper(strings.TrimSpace(os.Getenv("EDGEHUNTER_FEED")))
	}
	if raw == "" {
		raw = string(FeedMock)
	}
	switch FeedType(raw) {
	case FeedMock, FeedIBKR:
		return FeedType(raw)
	default:
		log.WarnCtx(context.Background(), "invalid feed type, falling back to MOCK", "value", raw)
		return FeedMock
	}
}

// IBKRConnection holds the broker TCP connection parameters.
type IBKRConnection struct {
	Host     string
	Port     int
	ClientID int
}

// ResolveIBKRConnection reads IBKR_HOST/IBKR_PORT/IBKR_CLIENT_ID, falling
// back to documented defaults with a warning on invalid values.
func ResolveIBKRConnection(log logging.Logger) IBKRConnection {
	host := strings.TrimSpace(os.Getenv("IBKR_HOST"))
	if host == "" {
		host = "127.0.0.1"
	}

	port := 7497
	if raw := strings.TrimSpace(os.Getenv("IBKR_PORT")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 1 && v <= 65535 {
			port = v
		} else {
			log.WarnCtx(context.Background(), "invalid IBKR_PORT, using default", "value", raw, "default", 7497)
		}
	}

	clientID := 1
	if raw := strings.TrimSpace(os.Getenv("IBKR_CLIENT_ID")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			clientID = v
		} else {
			log.WarnCtx(context.Background(), "invalid IBKR_CLIENT_ID, using default", "value", raw, "default", 1)
		}
	}

	return IBKRConnection{Host: host, Port: port, ClientID: clientID}
}

// IBKRContract holds the single instrument's explicit contract specification.
type IBKRContract struct {
	Symbol     string
	Expiry     string // YYYYMM
	Exchange   string
	Currency   string
	SecType    string
	Multiplier *int
}

// ContractKey returns "{SYMBOL}.{YYYYMM}" per spec.md §6.
func (c IBKRContract) ContractKey() string {
	return fmt.Sprintf("%s.%s", c.Symbol, c.Expiry)
}

var expiryRE = regexp.MustCompile(`^[0-9]{6}$`)

// ResolveIBKRContract reads IBKR_SYMBOL/IBKR_EXPIRY (required) plus the
// optional exchange/currency/sectype/multiplier fields. Returns an error if
// the required fields are missing or the expiry isn't exactly six digits.
func ResolveIBKRContract(log logging.Logger) (IBKRContract, error) {
	symbol := strings.TrimSpace(os.Getenv("IBKR_SYMBOL"))
	expiry := strings.TrimSpace(os.Getenv("IBKR_EXPIRY"))
	if symbol == "" || expiry == "" {
		return IBKRContract{}, fmt.Errorf("config: IBKR_SYMBOL and IBKR_EXPIRY are required (got symbol=%q expiry=%q)", symbol, expiry)
	}
	if !expiryRE.MatchString(expiry) {
		return IBKRContract{}, fmt.Errorf("config: invalid IBKR_EXPIRY %q, expected YYYYMM", expiry)
	}

	exchange := strings.TrimSpace(os.Getenv("IBKR_EXCHANGE"))
	if exchange == "" {
		exchange = "CME"
	}
	currency := strings.TrimSpace(os.Getenv("IBKR_CURRENCY"))
	if currency == "" {
		currency = "USD"
	}
	secType := strings.TrimSpace(os.Getenv("IBKR_SECTYPE"))
	if secType == "" {
		secType = "FUT"
	}

	var multiplier *int
	if raw := strings.TrimSpace(os.Getenv("IBKR_MULTIPLIER")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			multiplier = &v
		} else {
			log.WarnCtx(context.Background(), "invalid IBKR_MULTIPLIER, ignoring", "value", raw)
		}
	}

	return IBKRContract{
		Symbol:     symbol,
		Expiry:     expiry,
		Exchange:   exchange,
		Currency:   currency,
		SecType:    secType,
		Multiplier: multiplier,
	}, nil
}

// LogFeedConfig emits the single-line-per-component startup diagnostics
// described in spec.md's original feed_config source.
func LogFeedConfig(log logging.Logger, feed FeedType, conn *IBKRConnection, contract *IBKRContract) {
	ctx := context.Background()
	log.InfoCtx(ctx, "feed type resolved", "feed_type", string(feed))
	if feed != FeedIBKR {
		return
	}
	if conn != nil {
		log.InfoCtx(ctx, "IBKR connection", "host", conn.Host, "port", conn.Port, "client_id", conn.ClientID)
	} else {
		log.WarnCtx(ctx, "IBKR connection config missing")
	}
	if contract != nil {
		log.InfoCtx(ctx, "IBKR contract", "contract_key", contract.ContractKey(),
			"symbol", contract.Symbol, "expiry", contract.Expiry,
			"exchange", contract.Exchange, "currency", contract.Currency)
	} else {
		log.ErrorCtx(ctx, "IBKR contract config missing or invalid")
	}
}
