package electrum

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/shieldwallet/walletcore/wallettypes"
)

// Client is a JSON-RPC client for the Electrum server protocol (§6.1
// UnspentProvider/FeeProvider/Broadcaster's backing transport). It is
// grounded on the teacher's electrum/client.go wire protocol exactly —
// same request framing, same newline-delimited response stream — but
// every failure surfaces as a wallettypes.CoreError instead of a bare
// fmt.Errorf, and logs the connection lifecycle through an injected
// hclog.Logger the way the teacher's backend.go does around its own
// getClient calls.
type Client struct {
	conn     net.Conn
	mu       sync.Mutex
	id       atomic.Uint64
	url      string
	useTLS   bool
	host     string
	port     string
	respChan map[uint64]chan *rpcResponse
	respMu   sync.Mutex
	closed   bool
	logger   hclog.Logger
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Balance is the response shape of blockchain.scripthash.get_balance.
type Balance struct {
	Confirmed   int64 `json:"confirmed"`
	Unconfirmed int64 `json:"unconfirmed"`
}

// UTXO is one unspent output as Electrum reports it.
type UTXO struct {
	TxHash string `json:"tx_hash"`
	TxPos  int    `json:"tx_pos"`
	Height int64  `json:"height"`
	Value  int64  `json:"value"`
}

// Transaction is one history entry for a scripthash.
type Transaction struct {
	TxHash string `json:"tx_hash"`
	Height int64  `json:"height"`
	Fee    int64  `json:"fee,omitempty"`
}

// NewClient dials url (ssl:// or tcp://, defaulting to TLS), negotiates
// the Electrum protocol version, and starts its background response
// reader. logger may be nil, in which case the client logs nowhere —
// callers wiring an Adapter in production should pass their
// backend's own logger so connection events land in the same stream as
// everything else.
func NewClient(url string, logger hclog.Logger) (*Client, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	c := &Client{
		url:      url,
		respChan: make(map[uint64]chan *rpcResponse),
		logger:   logger,
	}

	if err := c.parseURL(url); err != nil {
		return nil, err
	}

	logger.Debug("connecting to Electrum server", "url", url)
	if err := c.connect(); err != nil {
		logger.Warn("failed to connect to Electrum server", "url", url, "error", err)
		return nil, err
	}

	go c.readResponses()

	if err := c.negotiateVersion(); err != nil {
		logger.Warn("Electrum protocol negotiation failed", "url", url, "error", err)
		c.Close()
		return nil, err
	}

	logger.Info("connected to Electrum server", "url", url)
	return c, nil
}

func (c *Client) parseURL(url string) error {
	if strings.HasPrefix(url, "ssl://") {
		c.useTLS = true
		url = strings.TrimPrefix(url, "ssl://")
	} else if strings.HasPrefix(url, "tcp://") {
		c.useTLS = false
		url = strings.TrimPrefix(url, "tcp://")
	} else {
		c.useTLS = true
	}

	parts := strings.Split(url, ":")
	if len(parts) != 2 {
		return wallettypes.New(wallettypes.KindProviderError, "invalid Electrum URL %q: expected host:port", url)
	}

	c.host = parts[0]
	c.port = parts[1]

	return nil
}

func (c *Client) connect() error {
	addr := net.JoinHostPort(c.host, c.port)

	var conn net.Conn
	var err error

	if c.useTLS {
		conn, err = tls.DialWithDialer(&net.Dialer{
			Timeout: 30 * time.Second,
		}, "tcp", addr, &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: c.host,
		})
	} else {
		conn, err = net.DialTimeout("tcp", addr, 30*time.Second)
	}

	if err != nil {
		return wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to connect to Electrum server at %s", addr)
	}

	c.conn = conn
	return nil
}

func (c *Client) readResponses() {
	decoder := json.NewDecoder(c.conn)
	for {
		var resp rpcResponse
		if err := decoder.Decode(&resp); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Warn("Electrum connection lost", "url", c.url, "error", err)
				c.respMu.Lock()
				for _, ch := range c.respChan {
					close(ch)
				}
				c.respChan = make(map[uint64]chan *rpcResponse)
				c.respMu.Unlock()
			}
			return
		}

		c.respMu.Lock()
		if ch, ok := c.respChan[resp.ID]; ok {
			ch <- &resp
			delete(c.respChan, resp.ID)
		}
		c.respMu.Unlock()
	}
}

func (c *Client) call(method string, params ...interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, wallettypes.New(wallettypes.KindProviderError, "electrum client is closed")
	}
	c.mu.Unlock()

	id := c.id.Add(1)

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	respCh := make(chan *rpcResponse, 1)
	c.respMu.Lock()
	c.respChan[id] = respCh
	c.respMu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to encode %s request", method)
	}
	data = append(data, '\n')

	c.mu.Lock()
	_, err = c.conn.Write(data)
	c.mu.Unlock()
	if err != nil {
		c.respMu.Lock()
		delete(c.respChan, id)
		c.respMu.Unlock()
		return nil, wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to send %s request", method)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, wallettypes.New(wallettypes.KindProviderError, "electrum connection closed while waiting for %s response", method)
		}
		if resp.Error != nil {
			c.logger.Debug("Electrum server returned an error", "method", method, "code", resp.Error.Code, "message", resp.Error.Message)
			return nil, wallettypes.New(wallettypes.KindProviderError, "electrum error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.respMu.Lock()
		delete(c.respChan, id)
		c.respMu.Unlock()
		return nil, wallettypes.New(wallettypes.KindProviderError, "%s request timed out", method)
	}
}

func (c *Client) negotiateVersion() error {
	result, err := c.call("server.version", "walletcore", "1.4")
	if err != nil {
		return wallettypes.Wrap(wallettypes.KindProviderError, err, "version negotiation failed")
	}

	var version []string
	if err := json.Unmarshal(result, &version); err != nil {
		return wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to parse version response")
	}

	c.logger.Debug("negotiated Electrum protocol version", "server_version", version)
	return nil
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		if c.conn != nil {
			c.conn.Close()
		}
		c.logger.Debug("closed Electrum connection", "url", c.url)
	}
}

// GetBalance returns the confirmed/unconfirmed balance for a scripthash.
func (c *Client) GetBalance(scripthash string) (*Balance, error) {
	result, err := c.call("blockchain.scripthash.get_balance", scripthash)
	if err != nil {
		return nil, err
	}

	var balance Balance
	if err := json.Unmarshal(result, &balance); err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to parse balance response")
	}

	return &balance, nil
}

// ListUnspent returns the unspent outputs locking a scripthash.
func (c *Client) ListUnspent(scripthash string) ([]UTXO, error) {
	result, err := c.call("blockchain.scripthash.listunspent", scripthash)
	if err != nil {
		return nil, err
	}

	var utxos []UTXO
	if err := json.Unmarshal(result, &utxos); err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to parse UTXO list")
	}

	return utxos, nil
}

// GetHistory returns the transaction history for a scripthash.
func (c *Client) GetHistory(scripthash string) ([]Transaction, error) {
	result, err := c.call("blockchain.scripthash.get_history", scripthash)
	if err != nil {
		return nil, err
	}

	var txs []Transaction
	if err := json.Unmarshal(result, &txs); err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to parse transaction history")
	}

	return txs, nil
}

// GetTransaction returns the raw hex-encoded transaction for a txid.
func (c *Client) GetTransaction(txhash string) (string, error) {
	result, err := c.call("blockchain.transaction.get", txhash)
	if err != nil {
		return "", err
	}

	var rawtx string
	if err := json.Unmarshal(result, &rawtx); err != nil {
		return "", wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to parse transaction response")
	}

	return rawtx, nil
}

// BroadcastTransaction submits a raw hex-encoded transaction and returns
// its txid in Electrum's display (big-endian) order.
func (c *Client) BroadcastTransaction(rawtx string) (string, error) {
	result, err := c.call("blockchain.transaction.broadcast", rawtx)
	if err != nil {
		return "", err
	}

	var txid string
	if err := json.Unmarshal(result, &txid); err != nil {
		return "", wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to parse broadcast response")
	}

	c.logger.Info("broadcast transaction", "txid", txid)
	return txid, nil
}

// EstimateFee returns the estimated fee in BTC per kilobyte for a
// confirmation target of blocks. A negative value means the server has
// insufficient data for the requested target.
func (c *Client) EstimateFee(blocks int) (float64, error) {
	result, err := c.call("blockchain.estimatefee", blocks)
	if err != nil {
		return 0, err
	}

	var fee float64
	if err := json.Unmarshal(result, &fee); err != nil {
		return 0, wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to parse fee estimate")
	}

	return fee, nil
}

// GetBlockHeader returns the raw hex-encoded block header at height.
func (c *Client) GetBlockHeader(height int64) (string, error) {
	result, err := c.call("blockchain.block.header", height)
	if err != nil {
		return "", err
	}

	var header string
	if err := json.Unmarshal(result, &header); err != nil {
		return "", wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to parse block header")
	}

	return header, nil
}

// Ping keeps the connection alive.
func (c *Client) Ping() error {
	_, err := c.call("server.ping")
	return err
}

// Subscribe subscribes to a scripthash and returns its current status
// hash, which changes whenever a transaction touching the address is
// added or confirmed. Returns nil if the address has no history yet.
func (c *Client) Subscribe(scripthash string) (*string, error) {
	result, err := c.call("blockchain.scripthash.subscribe", scripthash)
	if err != nil {
		return nil, err
	}

	if string(result) == "null" {
		return nil, nil
	}

	var status string
	if err := json.Unmarshal(result, &status); err != nil {
		return nil, wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to parse subscribe response")
	}

	return &status, nil
}

// GetBlockHeight returns the current chain tip height by subscribing to
// header notifications.
func (c *Client) GetBlockHeight() (int64, error) {
	result, err := c.call("blockchain.headers.subscribe")
	if err != nil {
		return 0, err
	}

	var headerInfo struct {
		Height int64  `json:"height"`
		Hex    string `json:"hex"`
	}
	if err := json.Unmarshal(result, &headerInfo); err != nil {
		return 0, wallettypes.Wrap(wallettypes.KindProviderError, err, "failed to parse header notification")
	}

	return headerInfo.Height, nil
}

// AddressToScriptHash converts a scriptPubKey into its Electrum
// scripthash: SHA-256 of the script, byte-reversed.
func AddressToScriptHash(scriptPubKey []byte) string {
	hash := sha256.Sum256(scriptPubKey)
	for i, j := 0, len(hash)-1; i < j; i, j = i+1, j-1 {
		hash[i], hash[j] = hash[j], hash[i]
	}
	return hex.EncodeToString(hash[:])
}
